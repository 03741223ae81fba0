package brawlhalla

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownRankingType = errors.New("unknown ranking type")
	ErrUnknownRegion      = errors.New("unknown region")
	ErrMissingPlayerID    = errors.New("missing player id")
)

// RankingType selects a ranked bracket
type RankingType string

const (
	OneVsOne RankingType = "1v1"
	TwoVsTwo RankingType = "2v2"
	Rotating RankingType = "rotating"
)

// RankingTypes lists every bracket in canonical order
var RankingTypes = []RankingType{OneVsOne, TwoVsTwo, Rotating}

// ParseRankingType validates s against the known brackets
func ParseRankingType(s string) (RankingType, error) {
	for _, t := range RankingTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRankingType, s)
}

// Region is a ranked server region
type Region string

const (
	USEast        Region = "us-e"
	Europe        Region = "eu"
	SouthEastAsia Region = "sea"
	Brazil        Region = "brz"
	Australia     Region = "aus"
	USWest        Region = "us-w"
	Japan         Region = "jpn"
	SouthAfrica   Region = "sa"
	MiddleEast    Region = "me"
)

// Regions lists every region in canonical order
var Regions = []Region{USEast, Europe, SouthEastAsia, Brazil, Australia, USWest, Japan, SouthAfrica, MiddleEast}

// ParseRegion validates s against the known regions
func ParseRegion(s string) (Region, error) {
	for _, r := range Regions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegion, s)
}

// FlexInt decodes integers the API sometimes sends as strings
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("flexible int %q: %w", b, err)
	}
	*n = FlexInt(v)
	return nil
}

// Ranking is one leaderboard row. 1v1 and rotating rows carry BrawlhallaID,
// 2v2 rows carry both team slots instead.
type Ranking struct {
	Rank            FlexInt `json:"rank"`
	Name            string  `json:"name,omitempty"`
	TeamName        string  `json:"teamname,omitempty"`
	BrawlhallaID    int     `json:"brawlhalla_id,omitempty"`
	BrawlhallaIDOne int     `json:"brawlhalla_id_one,omitempty"`
	BrawlhallaIDTwo int     `json:"brawlhalla_id_two,omitempty"`
	Rating          int     `json:"rating"`
	PeakRating      int     `json:"peak_rating"`
	Tier            string  `json:"tier"`
	Games           int     `json:"games"`
	Wins            int     `json:"wins"`
	Region          string  `json:"region"`
}

// PlayerIDs returns the players behind the row
func (r Ranking) PlayerIDs() []int {
	if r.BrawlhallaID != 0 {
		return []int{r.BrawlhallaID}
	}

	ids := make([]int, 0, 2)
	for _, id := range []int{r.BrawlhallaIDOne, r.BrawlhallaIDTwo} {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Rankings is one leaderboard page
type Rankings []Ranking

// Validate rejects rows without any player id
func (rs Rankings) Validate() error {
	for i, r := range rs {
		if len(r.PlayerIDs()) == 0 {
			return fmt.Errorf("%w: row %d", ErrMissingPlayerID, i)
		}
	}
	return nil
}

// PlayerIDs flattens the page into player ids in row order
func (rs Rankings) PlayerIDs() []int {
	ids := make([]int, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.PlayerIDs()...)
	}
	return ids
}

// Clan is the clan membership summary carried by player stats
type Clan struct {
	ClanName string  `json:"clan_name"`
	ClanID   int     `json:"clan_id"`
	ClanXP   FlexInt `json:"clan_xp"`
}

// PlayerStats is the lifetime stats payload
type PlayerStats struct {
	BrawlhallaID int             `json:"brawlhalla_id"`
	Name         string          `json:"name"`
	XP           int             `json:"xp"`
	Level        int             `json:"level"`
	Games        int             `json:"games"`
	Wins         int             `json:"wins"`
	Clan         *Clan           `json:"clan,omitempty"`
	Legends      json.RawMessage `json:"legends,omitempty"`
}

func (s PlayerStats) Validate() error {
	if s.BrawlhallaID == 0 {
		return ErrMissingPlayerID
	}
	return nil
}

// PlayerRanked is the ranked season payload
type PlayerRanked struct {
	BrawlhallaID int             `json:"brawlhalla_id"`
	Name         string          `json:"name"`
	Rating       int             `json:"rating"`
	PeakRating   int             `json:"peak_rating"`
	Tier         string          `json:"tier"`
	Games        int             `json:"games"`
	Wins         int             `json:"wins"`
	Region       string          `json:"region"`
	Teams        json.RawMessage `json:"2v2,omitempty"`
}

// Unranked players come back without an id, which is still a valid answer
func (PlayerRanked) Validate() error {
	return nil
}

// Player combines a player's lifetime stats and ranked season
type Player struct {
	Stats  PlayerStats  `json:"stats"`
	Ranked PlayerRanked `json:"ranked"`
}

func (p Player) Validate() error {
	return p.Stats.Validate()
}
