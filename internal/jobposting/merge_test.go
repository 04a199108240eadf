package jobposting

import (
	"testing"

	"jobradar.fyi/jobradar/internal/db"
)

func ptrFloat64(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }

func TestComputeMergePatchFillsOnlyEmptyFields(t *testing.T) {
	t.Parallel()

	canonical := db.MergeView{
		Description: "existing description",
	}
	incoming := MergeSource{
		Description:    "replacement description",
		Requirements:   "5 years experience",
		SalaryMin:      ptrFloat64(40000),
		SalaryMax:      ptrFloat64(55000),
		SalaryCurrency: ptrString("EUR"),
		LocationID:     ptrInt64(3),
	}

	patch := ComputeMergePatch(canonical, incoming)
	if patch.Description != nil {
		t.Fatalf("existing description must never be overwritten")
	}
	if patch.Requirements == nil || *patch.Requirements != "5 years experience" {
		t.Fatalf("empty requirements must be filled, got %v", patch.Requirements)
	}
	if patch.SalaryMin == nil || *patch.SalaryMin != 40000 {
		t.Fatalf("empty salary must be filled, got %v", patch.SalaryMin)
	}
	if patch.LocationID == nil || *patch.LocationID != 3 {
		t.Fatalf("empty location must be filled, got %v", patch.LocationID)
	}
}

func TestComputeMergePatchSalaryMovesAsUnit(t *testing.T) {
	t.Parallel()

	// A canonical record with only a max set still counts as having
	// salary data; the incoming triple must not partially overwrite it.
	canonical := db.MergeView{SalaryMax: ptrFloat64(60000)}
	incoming := MergeSource{
		SalaryMin:      ptrFloat64(40000),
		SalaryCurrency: ptrString("EUR"),
	}

	patch := ComputeMergePatch(canonical, incoming)
	if patch.SalaryMin != nil || patch.SalaryMax != nil || patch.SalaryCurrency != nil {
		t.Fatalf("partial canonical salary must block the incoming triple: %+v", patch)
	}
}

func TestComputeMergePatchIgnoresBlankIncoming(t *testing.T) {
	t.Parallel()

	patch := ComputeMergePatch(db.MergeView{}, MergeSource{Description: "   "})
	if patch.Description != nil {
		t.Fatalf("whitespace-only description must not be merged")
	}
	if patch.Requirements != nil || patch.SalaryMin != nil || patch.LocationID != nil {
		t.Fatalf("empty incoming must produce an empty patch: %+v", patch)
	}
}
