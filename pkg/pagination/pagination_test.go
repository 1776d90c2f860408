package pagination

import "testing"

func TestData(t *testing.T) {
	got := Data(25, 2, 10)
	if got.Page != 2 || got.Limit != 10 || got.Total != 25 || got.TotalPages != 3 {
		t.Errorf("Data(25, 2, 10) = %+v, want page=2 limit=10 total=25 totalPages=3", got)
	}

	got = Data(0, 1, 10)
	if got.TotalPages != 0 {
		t.Errorf("empty result should have 0 total pages, got %d", got.TotalPages)
	}

	got = Data(10, 1, 10)
	if got.TotalPages != 1 {
		t.Errorf("exact page boundary should have 1 total page, got %d", got.TotalPages)
	}
}

func TestNormalize(t *testing.T) {
	page, limit := Normalize(0, 0)
	if page != 1 || limit != DefaultLimit {
		t.Errorf("Normalize(0, 0) = (%d, %d), want (1, %d)", page, limit, DefaultLimit)
	}

	page, limit = Normalize(-3, 5000)
	if page != 1 || limit != MaxLimit {
		t.Errorf("Normalize(-3, 5000) = (%d, %d), want (1, %d)", page, limit, MaxLimit)
	}

	page, limit = Normalize(4, 20)
	if page != 4 || limit != 20 {
		t.Errorf("Normalize(4, 20) = (%d, %d), want unchanged", page, limit)
	}
}

func TestOffset(t *testing.T) {
	if off := Offset(1, 10); off != 0 {
		t.Errorf("Offset(1, 10) = %d, want 0", off)
	}
	if off := Offset(3, 25); off != 50 {
		t.Errorf("Offset(3, 25) = %d, want 50", off)
	}
}
