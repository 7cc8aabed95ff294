package reconcile

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/clockify-sync/pkg/clockify"
	"github.com/iota-uz/clockify-sync/pkg/rowsource"
)

func TestParseHours(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"37,5":   "37.5",
		"40":     "40",
		" 7.25 ": "7.25",
		"abc":    "0",
		"":       "0",
		"NaN":    "0",
	}
	for in, want := range cases {
		require.True(t, decimal.RequireFromString(want).Equal(ParseHours(in)), "ParseHours(%q)", in)
	}
}

func TestToDuration(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"8":     "PT8H0M",
		"7.5":   "PT7H30M",
		"0.25":  "PT0H15M",
		"0":     "PT0H0M",
		"7.999": "PT8H0M",
		"-3":    "PT0H0M",
	}
	for in, want := range cases {
		require.Equal(t, want, ToDuration(decimal.RequireFromString(in)), "ToDuration(%s)", in)
	}
}

func TestToDuration_NoLostMinutes(t *testing.T) {
	t.Parallel()

	for i := 0; i <= 2400; i++ {
		h := decimal.New(int64(i), -2) // 0.00 .. 24.00
		var hh, mm int64
		_, err := fmt.Sscanf(ToDuration(h), "PT%dH%dM", &hh, &mm)
		require.NoError(t, err)
		require.GreaterOrEqual(t, mm, int64(0))
		require.Less(t, mm, int64(60))
		require.Equal(t, h.Mul(decimal.NewFromInt(60)).Round(0).IntPart(), hh*60+mm, "hours=%s", h)
	}
}

func TestRowCapacity(t *testing.T) {
	t.Parallel()

	require.Equal(t, "PT8H0M", rowCapacity(rowsource.Row{}))
	require.Equal(t, "PT7H30M", rowCapacity(rowsource.Row{rowsource.ColumnWeeklyHours: "37,5"}))
	require.Equal(t, "PT0H0M", rowCapacity(rowsource.Row{rowsource.ColumnWeeklyHours: "n/a"}))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "John Doe", DisplayName(clockify.User{Name: " John Doe ", Email: "j@x.com"}))
	require.Equal(t, "j@x.com", DisplayName(clockify.User{Email: "j@x.com"}))
	require.Equal(t, "", DisplayName(clockify.User{}))
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	member := func(ws, status string) clockify.Membership {
		return clockify.Membership{TargetID: ws, MembershipStatus: status}
	}
	require.True(t, IsActive(clockify.User{Memberships: []clockify.Membership{member("ws", "ACTIVE")}, Status: "INACTIVE"}, "ws"))
	require.False(t, IsActive(clockify.User{Memberships: []clockify.Membership{member("ws", "INACTIVE")}, Status: "ACTIVE"}, "ws"))
	require.True(t, IsActive(clockify.User{Memberships: []clockify.Membership{member("other", "INACTIVE")}, Status: "ACTIVE"}, "ws"))
	require.False(t, IsActive(clockify.User{}, "ws"))
}

func TestSuggestEmail(t *testing.T) {
	t.Parallel()

	known := []string{"john.doe@x.com", "jane@x.com"}
	require.Equal(t, "john.doe@x.com", suggestEmail("jonh.doe@x.com", known))
	require.Equal(t, "john.doe@x.com", suggestEmail("john.doe", known))
	require.Equal(t, "", suggestEmail("someone.else@elsewhere.org", known))
	require.Equal(t, "", suggestEmail("", known))
}
