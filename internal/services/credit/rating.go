package credit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rating is an ordered credit tier; lower values are better.
type Rating int

const (
	Excellent Rating = iota
	Good
	Fair
	Poor
)

var ratingNames = [...]string{"EXCELLENT", "GOOD", "FAIR", "POOR"}

func (r Rating) String() string {
	if r < Excellent || r > Poor {
		return fmt.Sprintf("Rating(%d)", int(r))
	}

	return ratingNames[r]
}

func ParseRating(s string) (Rating, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range ratingNames {
		if name == s {
			return Rating(i), nil
		}
	}

	return 0, fmt.Errorf("unknown rating %q", s)
}

func (r Rating) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rating) UnmarshalText(b []byte) error {
	parsed, err := ParseRating(string(b))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// AtLeast reports whether r is as good as or better than required.
func (r Rating) AtLeast(required Rating) bool {
	return r <= required
}

// InterestModifier scales a loan's base rate.
func (r Rating) InterestModifier() decimal.Decimal {
	switch r {
	case Excellent:
		return decimal.RequireFromString("0.8")
	case Good:
		return decimal.NewFromInt(1)
	case Fair:
		return decimal.RequireFromString("1.2")
	default:
		return decimal.RequireFromString("1.5")
	}
}

const (
	excellentFrom = 750
	goodFrom      = 600
	fairFrom      = 450
)

func RatingFor(score int) Rating {
	switch {
	case score >= excellentFrom:
		return Excellent
	case score >= goodFrom:
		return Good
	case score >= fairFrom:
		return Fair
	default:
		return Poor
	}
}
