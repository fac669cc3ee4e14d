package csvdata

import "testing"

func TestDecodeSeparatorDetection(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{
			name: "semicolon file",
			data: "DNI;Nombre\n12345678Z;Ana\n",
			want: ';',
		},
		{
			name: "comma file",
			data: "DNI,Nombre\n12345678Z,Ana\n",
			want: ',',
		},
		{
			name: "semicolon inside quoted comma field loses",
			data: "DNI,\"Nombre;Apellidos\"\n",
			want: ',',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if doc.Separator() != tt.want {
				t.Errorf("Separator() = %q, want %q", doc.Separator(), tt.want)
			}
		})
	}
}

func TestDecodeLatin1(t *testing.T) {
	// "Nombre;Centro\nJosé;Málaga\n" with é=0xE9 and á=0xE1 in ISO-8859-1.
	data := []byte("Nombre;Centro\nJos\xe9;M\xe1laga\n")

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	rows := doc.ReadAll()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0][ColName]; got != "José" {
		t.Errorf("name = %q, want %q", got, "José")
	}
	if got := rows[0][ColCenterName]; got != "Málaga" {
		t.Errorf("center = %q, want %q", got, "Málaga")
	}
}

func TestDecodeHeaderAliases(t *testing.T) {
	// Latin-1 header: ú=0xFA, ó=0xF3.
	data := []byte("NIF;N\xfam. Seg. Social;Primer Apellido;Raz\xf3n Social\nx;y;z;w\n")

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []string{ColDNI, ColNSS, ColSurname1, ColCompanyName}
	got := doc.Header()
	if len(got) != len(want) {
		t.Fatalf("header has %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCleanHeaderStripsBOM(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bom prefix", "\uFEFFDNI", "dni"},
		{"bom with alias input", "\uFEFFPrimer Apellido", "primer_apellido"},
		{"no bom", "DNI", "dni"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanHeader(tt.raw); got != tt.want {
				t.Errorf("CleanHeader(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeUnknownHeaderSurvives(t *testing.T) {
	data := []byte("DNI;Columna Rara\na;b\n")

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := doc.Header()[1]; got != "columna_rara" {
		t.Errorf("unknown header = %q, want %q", got, "columna_rara")
	}
}

func TestRowsSkipEmptyAndUnwrapFormulas(t *testing.T) {
	data := []byte("DNI;Nombre\n=\"12345678Z\"; Ana \n;\n87654321X;Luis\n")

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	rows := doc.ReadAll()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (empty row skipped)", len(rows))
	}
	if got := rows[0][ColDNI]; got != "12345678Z" {
		t.Errorf("formula-wrapped dni = %q, want %q", got, "12345678Z")
	}
	if got := rows[0][ColName]; got != "Ana" {
		t.Errorf("name = %q, want trimmed %q", got, "Ana")
	}
}

func TestRowsRestartable(t *testing.T) {
	data := []byte("DNI\n1\n2\n")

	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	first := doc.ReadAll()
	second := doc.ReadAll()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("restarted read returned %d then %d rows, want 2 and 2", len(first), len(second))
	}
}

func TestDecodeEmptyFile(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Error("Decode(nil) should fail")
	}
}
