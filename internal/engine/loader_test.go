package engine

import (
	"math"
	"os"
	"strings"
	"testing"
)

const sampleCSV = `Country name,Region,Income Category,Ladder score,GDP per capita,Total tax rate
Finland,Europe,High income,7.74,1.84,38.3%
India,Asia,Lower middle income,4.05,,49.7%
"Korea, Republic of",Asia,High income,6.06,1.72,33.2%
Norway,Europe,High income,7.30,n/a,36.2%
`

func TestLoadColumnar(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test_data_*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(sampleCSV); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}

	// 2. Run Loader
	store, err := LoadColumnar(tmpFile.Name())
	if err != nil {
		t.Fatal(err)
	}

	// 3. Assertions

	// Expect 4 rows
	if store.Len() != 4 {
		t.Fatalf("Expected 4 rows, got %d", store.Len())
	}

	// Quoted names survive the comma
	if got := store.CountryDict[store.CountryIDs[2]]; got != "Korea, Republic of" {
		t.Errorf("Row 2 country: got %q", got)
	}

	// Categorical columns are not indicators
	want := []string{"Ladder score", "GDP per capita", "Total tax rate"}
	if strings.Join(store.Columns, "|") != strings.Join(want, "|") {
		t.Errorf("Columns: expected %v, got %v", want, store.Columns)
	}

	// Percentages are cleaned, blanks and junk are NaN
	if v := store.Numbers["Total tax rate"][0]; v != 38.3 {
		t.Errorf("Row 0 tax: expected 38.3, got %f", v)
	}
	if v := store.Numbers["GDP per capita"][1]; !math.IsNaN(v) {
		t.Errorf("Row 1 GDP: expected NaN, got %f", v)
	}
	if v := store.Numbers["GDP per capita"][3]; !math.IsNaN(v) {
		t.Errorf("Row 3 GDP: expected NaN, got %f", v)
	}
	if store.Text["Total tax rate"][1] != "49.7%" {
		t.Errorf("Row 1 raw tax text lost: %q", store.Text["Total tax rate"][1])
	}

	// Dictionary Checks
	if len(store.RegionDict) != 2 || store.RegionDict[0] != "Europe" {
		t.Errorf("Expected regions [Europe Asia], got %v", store.RegionDict)
	}
	if store.RegionIDs[3] != 0 {
		t.Errorf("Norway region ID: expected 0, got %d", store.RegionIDs[3])
	}
}

func TestReadColumnarMissingCountry(t *testing.T) {
	_, err := ReadColumnar(strings.NewReader("Region,Ladder score\nEurope,7\n"))
	if err == nil {
		t.Fatal("expected error for CSV without a country column")
	}
}

func TestCleanNumber(t *testing.T) {
	cases := map[string]float64{
		"123.45": 123.45,
		"65.4%":  65.4,
		"-1.5":   -1.5,
		" 7 ":    7,
	}
	for in, want := range cases {
		if got := cleanNumber(in); got != want {
			t.Errorf("cleanNumber(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "n/a", "--"} {
		if got := cleanNumber(in); !math.IsNaN(got) {
			t.Errorf("cleanNumber(%q) = %v, want NaN", in, got)
		}
	}
}
