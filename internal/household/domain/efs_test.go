package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeEFS(t *testing.T) {
	tests := []struct {
		name     string
		adults   int
		under6   int
		mid      int
		over18   int
		expected string
	}{
		{"single adult", 1, 0, 0, 0, "1"},
		{"couple", 2, 0, 0, 0, "1.5"},
		{"couple with school-age child", 2, 0, 1, 0, "1.8"},
		{"couple with infant", 2, 1, 0, 0, "1.7"},
		{"couple with adult dependent", 2, 0, 0, 1, "2"},
		{"large household", 3, 1, 2, 1, "3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			efs, err := ComputeEFS(tt.adults, tt.under6, tt.mid, tt.over18)
			assert.NoError(t, err)
			assert.True(t, efs.Equal(decimal.RequireFromString(tt.expected)),
				"got %s, want %s", efs, tt.expected)
		})
	}
}

func TestComputeEFS_InvalidCounts(t *testing.T) {
	tests := []struct {
		name   string
		adults int
		under6 int
		mid    int
		over18 int
	}{
		{"zero adults", 0, 0, 0, 0},
		{"negative adults", -1, 0, 0, 0},
		{"negative infants", 1, -1, 0, 0},
		{"negative school-age", 1, 0, -1, 0},
		{"negative adult dependents", 1, 0, 0, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeEFS(tt.adults, tt.under6, tt.mid, tt.over18)
			assert.ErrorIs(t, err, ErrInvalidHouseholdCounts)
		})
	}
}

func TestComputeEFS_MonotonicInMembers(t *testing.T) {
	one := decimal.RequireFromString("1")

	for adults := 1; adults <= 4; adults++ {
		for deps := 0; deps <= 5; deps++ {
			smaller, err := ComputeEFS(adults, 0, deps, 0)
			assert.NoError(t, err)
			assert.True(t, smaller.GreaterThanOrEqual(one))

			larger, err := ComputeEFS(adults, 0, deps+1, 0)
			assert.NoError(t, err)
			assert.True(t, larger.GreaterThan(smaller),
				"adding a dependent must raise EFS: %s -> %s", smaller, larger)
		}
	}
}

func TestEFSFor_NilProfile(t *testing.T) {
	_, err := EFSFor(nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
