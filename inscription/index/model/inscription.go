package model

import (
	"math"

	"github.com/inscription-c/zins/constants"
)

// Inscription is a parsed proverb record, either from a script envelope or
// from a shielded memo.
type Inscription struct {
	Version string  `json:"version"`
	Act     int     `json:"act"`
	Tag     string  `json:"tag,omitempty"`
	Payload string  `json:"payload"`
	Score   float64 `json:"score,omitempty"`
	Hash    string  `json:"hash,omitempty"`
	Ref     string  `json:"ref,omitempty"`
	Raw     string  `json:"raw"`
}

// Valid reports whether both required fields are present. Act 0 is reserved
// for "not parsed", and acts must fit a 32 bit column.
func (i *Inscription) Valid() bool {
	return i != nil && i.Act > 0 && i.Act <= math.MaxInt32 && i.Payload != ""
}

// ActTitle returns the title of the act the record belongs to.
func (i *Inscription) ActTitle() string {
	return constants.ActTitle(i.Act)
}
