package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type emptyObject struct{}

type city struct {
	ID   string
	Name string
}

func TestDerive_StatusFlags(t *testing.T) {
	tests := []struct {
		status RequestStatus
		want   Flags
	}{
		{Idle, Flags{IsIdle: true}},
		{Loading, Flags{IsLoading: true}},
		{Failed, Flags{HasError: true}},
		{Succeeded, Flags{IsLoaded: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.status, []int{1}))
		})
	}
}

func TestDerive_ZeroStatusIsIdle(t *testing.T) {
	var s RequestStatus
	assert.True(t, Derive(s, nil).IsIdle)
	assert.Equal(t, "idle", s.String())
}

func TestDerive_EmptyOnlyWhenSucceeded(t *testing.T) {
	empties := []any{
		nil,
		[]string{},
		[]city(nil),
		map[string]int{},
		map[string]struct{}{},
		emptyObject{},
		(*city)(nil),
		[0]int{},
	}
	for _, s := range []RequestStatus{Idle, Loading, Failed} {
		for _, data := range empties {
			assert.Falsef(t, Derive(s, data).IsEmpty, "status %s data %#v", s, data)
		}
	}
	for _, data := range empties {
		assert.Truef(t, Derive(Succeeded, data).IsEmpty, "data %#v", data)
	}
}

func TestDerive_NonEmptyShapes(t *testing.T) {
	nonEmpty := []any{
		[]string{"paris"},
		map[string]int{"a": 1},
		map[string]struct{}{"x": {}},
		city{ID: "1"},
		&city{ID: "1"},
		city{},
		0,
		"",
	}
	for _, data := range nonEmpty {
		f := Derive(Succeeded, data)
		assert.Truef(t, f.IsLoaded, "data %#v", data)
		assert.Falsef(t, f.IsEmpty, "data %#v", data)
	}
}

func TestDeriveList(t *testing.T) {
	assert.True(t, DeriveList[city](Succeeded, nil).IsEmpty)
	assert.True(t, DeriveList(Succeeded, []city{}).IsEmpty)
	assert.False(t, DeriveList(Succeeded, []city{{ID: "1"}}).IsEmpty)
	assert.False(t, DeriveList(Loading, []city{}).IsEmpty)
	assert.False(t, DeriveList(Failed, []city{}).IsEmpty)
}

func TestDeriveItem(t *testing.T) {
	f := DeriveItem[city](Succeeded, nil)
	assert.True(t, f.IsLoaded)
	assert.True(t, f.IsEmpty)
	assert.False(t, f.HasError)

	assert.False(t, DeriveItem(Succeeded, &city{ID: "1"}).IsEmpty)
	assert.False(t, DeriveItem[city](Failed, nil).IsEmpty)
}

func TestRequestStatus_Valid(t *testing.T) {
	for _, s := range []RequestStatus{Idle, Loading, Succeeded, Failed} {
		assert.True(t, s.Valid())
	}
	assert.False(t, RequestStatus("pending").Valid())
}
