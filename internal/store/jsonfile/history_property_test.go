package jsonfile

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/forgelabs/appforge/internal/models"
)

// Appending any number of records never retains more than the cap, and
// the retained records are always the most recent ones, newest first.
func TestHistoryRetentionCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("history keeps at most the newest records", prop.ForAll(
		func(count int) bool {
			s, err := New(t.TempDir(), nil)
			if err != nil {
				return false
			}

			for i := 0; i < count; i++ {
				err := s.History().Append("p", "a", &models.BuildRecord{
					BuildID: fmt.Sprintf("b%d", i),
					Status:  models.BuildStatusSuccess,
				})
				if err != nil {
					return false
				}
			}

			records, err := s.History().List("p", "a", 0)
			if err != nil {
				return false
			}

			wantLen := count
			if wantLen > maxHistoryRecords {
				wantLen = maxHistoryRecords
			}
			if len(records) != wantLen {
				return false
			}
			// records[i] must be the i-th newest append.
			for i, r := range records {
				if r.BuildID != fmt.Sprintf("b%d", count-1-i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, maxHistoryRecords+25),
	))

	properties.TestingRun(t)
}
