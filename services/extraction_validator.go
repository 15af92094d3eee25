package services

import (
	"encoding/json"
	"log"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/taxonomy"
	"github.com/ultraintel/counselor-api/utils"
)

// rawAssignment is one entry of the model's extraction output. Older
// prompt revisions stored the rank in a field named percentage, so both
// spellings are honored. Ranks decode as floats so a fractional value
// misbehaving models emit maps onto its integer part instead of failing
// the decode.
type rawAssignment struct {
	CategoryName string   `json:"category_name"`
	Ranking      *float64 `json:"ranking"`
	Percentage   *float64 `json:"percentage"`
}

func (r rawAssignment) rank() int {
	if r.Ranking != nil && int(*r.Ranking) > 0 {
		return int(*r.Ranking)
	}
	if r.Percentage != nil {
		return int(*r.Percentage)
	}
	return 0
}

// ExtractionResult is the validated output of one extraction pass.
// Assignments contains only categories that exist in the taxonomy,
// at most once per dimension.
type ExtractionResult struct {
	Assignments []model.Assignment
	Dropped     int
}

// Empty reports whether validation kept nothing.
func (r ExtractionResult) Empty() bool {
	return len(r.Assignments) == 0
}

// ForDimension returns the kept assignments of one dimension, in the
// order they survived validation.
func (r ExtractionResult) ForDimension(dim taxonomy.Dimension) []model.Assignment {
	var out []model.Assignment
	for _, a := range r.Assignments {
		if a.Dimension == dim {
			out = append(out, a)
		}
	}
	return out
}

// ValidateExtraction parses raw model output into taxonomy-checked
// assignments. It never fails: unparseable output yields an empty
// result, unknown categories and non-positive ranks are dropped and
// counted. When the model emits the same category twice in one pass the
// lower rank wins, with the first occurrence winning ties.
func ValidateExtraction(raw string) ExtractionResult {
	var result ExtractionResult

	cleaned, err := utils.ExtractJSON(raw)
	if err != nil {
		log.Printf("[EXTRACTION] no JSON in model output: %v", err)
		return result
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &sections); err != nil {
		log.Printf("[EXTRACTION] malformed extraction object: %v", err)
		return result
	}

	for _, dim := range taxonomy.Dimensions() {
		section, ok := sections[string(dim)]
		if !ok {
			continue
		}

		var elements []json.RawMessage
		if err := json.Unmarshal(section, &elements); err != nil {
			log.Printf("[EXTRACTION] malformed %s section: %v", dim, err)
			continue
		}

		best := make(map[string]int, len(elements))
		order := make([]string, 0, len(elements))
		for _, element := range elements {
			// Elements decode one at a time so a single bad entry (a
			// string rank, a nested object) drops alone instead of
			// taking its siblings with it.
			var entry rawAssignment
			if err := json.Unmarshal(element, &entry); err != nil {
				log.Printf("[EXTRACTION] dropping malformed %s element: %v", dim, err)
				result.Dropped++
				continue
			}
			if !taxonomy.IsValid(dim, entry.CategoryName) {
				log.Printf("[EXTRACTION] dropping unknown %s category %q", dim, entry.CategoryName)
				result.Dropped++
				continue
			}
			rank := entry.rank()
			if rank <= 0 {
				log.Printf("[EXTRACTION] dropping %s/%s with non-positive rank %d", dim, entry.CategoryName, rank)
				result.Dropped++
				continue
			}

			prev, seen := best[entry.CategoryName]
			if !seen {
				best[entry.CategoryName] = rank
				order = append(order, entry.CategoryName)
				continue
			}
			if rank < prev {
				best[entry.CategoryName] = rank
			}
			result.Dropped++
		}

		for _, name := range order {
			result.Assignments = append(result.Assignments, model.Assignment{
				Dimension:    dim,
				CategoryName: name,
				Rank:         best[name],
			})
		}
	}

	return result
}

// ValidateMilestoneList parses the milestone identification output: a
// JSON array of category names. Unknown names are dropped and the list
// is capped at three entries. Unparseable output yields an empty list.
func ValidateMilestoneList(raw string) []string {
	cleaned, err := utils.ExtractJSON(raw)
	if err != nil {
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(cleaned), &names); err != nil {
		return nil
	}

	var out []string
	for _, name := range names {
		if !taxonomy.IsValid(taxonomy.DimensionMilestoneGoal, name) {
			log.Printf("[EXTRACTION] dropping unknown milestone goal %q", name)
			continue
		}
		out = append(out, name)
		if len(out) == 3 {
			break
		}
	}
	return out
}
