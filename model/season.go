package model

import (
	"fmt"
	"time"
)

type Season int

const (
	DJF Season = iota
	MAM
	JJA
	SON
)

var seasonNames = [...]string{"DJF", "MAM", "JJA", "SON"}

func (s Season) String() string {
	if s < DJF || s > SON {
		return fmt.Sprintf("Season(%d)", int(s))
	}
	return seasonNames[s]
}

func (s Season) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Season) UnmarshalText(text []byte) error {
	parsed, err := ParseSeason(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeason(name string) (Season, error) {
	for i, n := range seasonNames {
		if n == name {
			return Season(i), nil
		}
	}
	return 0, fmt.Errorf("unknown season %q", name)
}

// SeasonOf maps a month to its meteorological season:
// 12,1,2 DJF; 3,4,5 MAM; 6,7,8 JJA; 9,10,11 SON.
func SeasonOf(month time.Month) Season {
	return Season((int(month) % 12) / 3)
}
