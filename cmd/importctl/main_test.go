package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedPath = "../../internal/catalog/testdata/seed.yaml"

// run executes the root command and returns its output and exit code.
func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), exitCode(err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTypes(t *testing.T) {
	out, code := run(t, "types")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "variants")
	assert.Contains(t, out, "compatibility")
}

func TestTemplate_FromSeed(t *testing.T) {
	out, code := run(t, "--seed", seedPath, "template", "variants", "--examples", "1")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "Atrybut: Rozmiar")
	assert.Contains(t, out, "Cena: Detaliczna")
	assert.NotContains(t, out, "Stary atrybut", "inactive attributes are not offered")
}

func TestTemplate_XLSXToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.xlsx")
	out, code := run(t, "--seed", seedPath, "template", "features", "--format", "xlsx", "-o", path)
	require.Equal(t, exitOK, code, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestImport_PartialFailureWritesReport(t *testing.T) {
	file := writeFile(t, "warianty.csv",
		"SKU;Rodzic SKU;Atrybut: Rozmiar\n"+
			"KASK-01-M;KASK-01;M\n"+
			"KASK-01-S;KASK-01;S\n")
	report := filepath.Join(t.TempDir(), "bledy.csv")

	out, code := run(t, "--seed", seedPath, "import", "variants", file, "--report", report)
	assert.Equal(t, exitValidation, code, out)
	assert.Contains(t, out, "imported:          1")
	assert.Contains(t, out, "validation errors: 1")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "already exists")
}

func TestImport_DryRunSucceeds(t *testing.T) {
	file := writeFile(t, "cechy.csv", "SKU;Cecha: Moc (W) [liczba]\nLED-100;\"12,5\"\n")

	out, code := run(t, "--seed", seedPath, "import", "features", file, "--dry-run")
	assert.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "valid:             1")
}

func TestImport_AutoCombinations(t *testing.T) {
	file := writeFile(t, "warianty.csv",
		"SKU;Rodzic SKU;Atrybut: Rozmiar;Atrybut: Kolor\n"+
			";PROD-001;S|M;Czerwony\n")

	out, code := run(t, "--seed", seedPath, "import", "variants", file, "--auto-combinations")
	assert.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "rows:              2 (1 in file)")
}

func TestDetect_MissingColumns(t *testing.T) {
	file := writeFile(t, "zgodnosc.csv", "SKU;Marka;Model;Notatki robocze\nLED-100;Honda;CRF;x\n")

	out, code := run(t, "detect", "compatibility", file)
	assert.Equal(t, exitValidation, code)
	assert.Contains(t, out, "vehicle_brand")
	assert.Contains(t, out, "1 data rows")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown type", []string{"--seed", seedPath, "import", "orders", "x.csv"}, exitUsage},
		{"missing file", []string{"--seed", seedPath, "import", "variants", "/nonexistent/x.csv"}, exitUsage},
		{"bad format", []string{"--seed", seedPath, "template", "variants", "--format", "pdf"}, exitUsage},
		{"missing seed", []string{"--seed", "/nonexistent/seed.yaml", "template", "variants"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := run(t, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}
