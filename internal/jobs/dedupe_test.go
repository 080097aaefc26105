package jobs

import "testing"

func rec(id string) JobRecord {
	return JobRecord{Identity: id, PrinterAddress: "10.0.0.5", Status: StatusCompleted}
}

func TestFilterNewDropsKnownAndInBatchDuplicates(t *testing.T) {
	batch := []JobRecord{rec("A"), rec("A"), rec("B"), rec("C")}
	known := map[string]struct{}{"C": {}}

	fresh := FilterNew(batch, known)

	if len(fresh) != 2 {
		t.Fatalf("got %d records, want 2", len(fresh))
	}
	if fresh[0].Identity != "A" || fresh[1].Identity != "B" {
		t.Errorf("got %s,%s want A,B", fresh[0].Identity, fresh[1].Identity)
	}
}

func TestFilterNewPerSinkIndependence(t *testing.T) {
	// "A" already reached the CSV in a prior run whose spreadsheet
	// write failed; each sink converges independently.
	batch := []JobRecord{rec("A"), rec("B")}
	csvKnown := map[string]struct{}{"A": {}}
	sheetKnown := map[string]struct{}{}

	forCSV := FilterNew(batch, csvKnown)
	forSheet := FilterNew(batch, sheetKnown)

	if len(forCSV) != 1 || forCSV[0].Identity != "B" {
		t.Errorf("csv subset = %v, want [B]", identities(forCSV))
	}
	if len(forSheet) != 2 {
		t.Errorf("sheet subset = %v, want [A B]", identities(forSheet))
	}
}

func TestFilterNewSecondRunIsNoOp(t *testing.T) {
	batch := []JobRecord{rec("A"), rec("B")}
	known := map[string]struct{}{}

	first := FilterNew(batch, known)
	for _, r := range first {
		known[r.Identity] = struct{}{}
	}

	second := FilterNew(batch, known)
	if len(second) != 0 {
		t.Errorf("second run produced %v, want none", identities(second))
	}
}

func TestFilterNewDoesNotMutateKnown(t *testing.T) {
	known := map[string]struct{}{"X": {}}
	FilterNew([]JobRecord{rec("A"), rec("B")}, known)
	if len(known) != 1 {
		t.Errorf("known set mutated: %v", known)
	}
}

func TestFilterNewEmptyBatch(t *testing.T) {
	if got := FilterNew(nil, map[string]struct{}{"A": {}}); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func identities(records []JobRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Identity
	}
	return ids
}
