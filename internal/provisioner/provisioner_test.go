package provisioner

import (
	"strings"
	"testing"
)

func TestRandomPassword(t *testing.T) {
	password, err := randomPassword(passwordLength)
	if err != nil {
		t.Fatal(err)
	}
	if len(password) != passwordLength {
		t.Fatalf("length = %d, want %d", len(password), passwordLength)
	}
	for _, r := range password {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Fatalf("unexpected character %q", r)
		}
	}

	other, err := randomPassword(passwordLength)
	if err != nil {
		t.Fatal(err)
	}
	if password == other {
		t.Fatal("two generated passwords collided")
	}
}

func TestGuards_fireInReverseOrder(t *testing.T) {
	var g guards
	var order []string

	g.add(func() { order = append(order, "database") })
	g.add(func() { order = append(order, "bucket") })
	g.add(func() { order = append(order, "index") })

	g.fireAll()

	want := []string{"index", "bucket", "database"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestGuards_disarmPreventsCleanup(t *testing.T) {
	var g guards
	fired := false
	g.add(func() { fired = true })

	g.disarmAll()
	g.fireAll()

	if fired {
		t.Fatal("disarmed guard still fired")
	}
}

func TestGuard_firesAtMostOnce(t *testing.T) {
	count := 0
	guard := newRollbackGuard(func() { count++ })

	guard.fire()
	guard.fire()

	if count != 1 {
		t.Fatalf("cleanup ran %d times", count)
	}
}

func TestQuoteLiteral(t *testing.T) {
	cases := map[string]string{
		"plain":       "'plain'",
		"with'quote":  "'with''quote'",
		"two''quotes": "'two''''quotes'",
	}
	for input, want := range cases {
		if got := quoteLiteral(input); got != want {
			t.Errorf("quoteLiteral(%q) = %s, want %s", input, got, want)
		}
	}
}
