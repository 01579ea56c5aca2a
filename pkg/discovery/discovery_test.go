package discovery

import "testing"

func TestFindReturnsFirstExistingSuffixInOrder(t *testing.T) {
	exists := map[string]bool{
		"/db.k7":  true,
		"/db.sk5": true,
	}
	checker := func(path string) bool { return exists[path] }

	if got := FindWith("/db", checker); got != "/db.k7" {
		t.Fatalf("Find = %q, want /db.k7 (first existing suffix in probe order)", got)
	}
}

func TestFindReturnsEmptyWhenNoneExist(t *testing.T) {
	checker := func(path string) bool { return false }
	if got := FindWith("/db", checker); got != "" {
		t.Fatalf("Find = %q, want empty string", got)
	}
}

func TestFindProbesAllSixSuffixes(t *testing.T) {
	var probed []string
	checker := func(path string) bool {
		probed = append(probed, path)
		return false
	}
	FindWith("/db", checker)
	want := []string{"/db.k5", "/db.k6", "/db.k7", "/db.sk5", "/db.sk6", "/db.sk7"}
	if len(probed) != len(want) {
		t.Fatalf("probed %v, want %v", probed, want)
	}
	for i := range want {
		if probed[i] != want[i] {
			t.Fatalf("probed[%d] = %q, want %q", i, probed[i], want[i])
		}
	}
}
