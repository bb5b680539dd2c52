package sql

import "testing"

func TestScreenQuestion(t *testing.T) {
	natural := []string{
		"how many customers signed up last month?",
		"top 5 products by revenue",
		"average order quantity per category",
		"which customers ordered more than 10 items?",
	}
	for _, q := range natural {
		if fp, hit := ScreenQuestion(q); hit {
			t.Errorf("natural question flagged (%s): %q", fp, q)
		}
	}

	hostile := []string{
		"x' OR '1'='1",
		"1; DROP TABLE customers --",
		"' UNION SELECT password FROM users --",
	}
	for _, q := range hostile {
		if _, hit := ScreenQuestion(q); !hit {
			t.Errorf("injection pattern not flagged: %q", q)
		}
	}
}

func TestCheckLiterals(t *testing.T) {
	d := testDescriptor()

	// Plain literals pass, including apostrophes escaped by doubling.
	if _, err := Validate("SELECT * FROM customers WHERE name = 'O''Brien'", d); err != nil {
		t.Fatalf("benign literal rejected: %v", err)
	}

	// A literal whose content is itself an injection payload is rejected
	// even though it tokenizes as a single string.
	if _, err := Validate("SELECT * FROM customers WHERE name = '1'' OR ''1''=''1'", d); err == nil {
		t.Fatal("injection payload inside literal accepted")
	}
}
