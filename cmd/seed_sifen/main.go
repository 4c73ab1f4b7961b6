// seed_sifen genera el script SQL del catálogo geográfico SIFEN (departamentos, distritos y ciudades)
// a partir del CSV publicado por la SET, codificado en ISO-8859-1 y separado por ';'.
//
// Columnas: departamento;desc_departamento;distrito;desc_distrito;ciudad;desc_ciudad
//
// Uso: go run ./cmd/seed_sifen [ruta/ciudades.csv]
// Por defecto busca ciudades.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_geo_cities.sql
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type city struct {
	deptCode     int
	deptName     string
	districtCode int
	districtName string
	code         int
	name         string
}

func main() {
	csvPath := "ciudades.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	cities, err := readCities(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "002_seed_geo_cities.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, cities); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d ciudades\n", outPath, len(cities))
}

// readCities lee el CSV ya decodificado a UTF-8. Omite el encabezado y filas incompletas.
func readCities(r io.Reader) ([]city, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := map[int]bool{}
	var out []city
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if len(rec) < 6 {
			continue
		}
		c, ok := parseCity(rec)
		if !ok || seen[c.code] {
			continue
		}
		seen[c.code] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out, nil
}

func parseCity(rec []string) (city, bool) {
	var codes [3]int
	for i, idx := range []int{0, 2, 4} {
		n, err := strconv.Atoi(strings.TrimSpace(rec[idx]))
		if err != nil {
			return city{}, false
		}
		codes[i] = n
	}
	c := city{
		deptCode: codes[0], deptName: strings.TrimSpace(rec[1]),
		districtCode: codes[1], districtName: strings.TrimSpace(rec[3]),
		code: codes[2], name: strings.TrimSpace(rec[5]),
	}
	return c, c.name != ""
}

func writeSQL(w io.Writer, cities []city) error {
	var b strings.Builder
	b.WriteString("-- Catálogo geográfico SIFEN (departamentos, distritos y ciudades)\n")
	b.WriteString("-- Generado por cmd/seed_sifen\n\n")
	if len(cities) == 0 {
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("INSERT INTO geo_cities (city_code, city_name, district_code, district_name, department_code, department_name) VALUES\n")
	for i, c := range cities {
		fmt.Fprintf(&b, "  (%d, '%s', %d, '%s', %d, '%s')", c.code, escapeSQL(c.name),
			c.districtCode, escapeSQL(c.districtName), c.deptCode, escapeSQL(c.deptName))
		if i < len(cities)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString("\n")
		}
	}
	b.WriteString("ON CONFLICT (city_code) DO UPDATE SET\n")
	b.WriteString("  city_name = EXCLUDED.city_name,\n")
	b.WriteString("  district_code = EXCLUDED.district_code,\n")
	b.WriteString("  district_name = EXCLUDED.district_name,\n")
	b.WriteString("  department_code = EXCLUDED.department_code,\n")
	b.WriteString("  department_name = EXCLUDED.department_name;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
