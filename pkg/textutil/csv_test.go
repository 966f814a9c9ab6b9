package textutil

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		delimiter rune
		want      [][]string
	}{
		{
			name:      "plain rows",
			text:      "a,b,c\n1,2,3\n",
			delimiter: ',',
			want:      [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:      "semicolon with quotes",
			text:      `"x;y";z` + "\n" + `"say ""hi""";w`,
			delimiter: ';',
			want:      [][]string{{"x;y", "z"}, {`say "hi"`, "w"}},
		},
		{
			name:      "ragged rows",
			text:      "a\nb,c\n",
			delimiter: ',',
			want:      [][]string{{"a"}, {"b", "c"}},
		},
		{
			name:      "empty input",
			text:      "",
			delimiter: ',',
			want:      [][]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(tt.text, tt.delimiter)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCSV() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCSVMalformedQuoting(t *testing.T) {
	for _, text := range []string{`"unterminated,field`, `a"b,c`} {
		_, err := ParseCSV(text, ',')
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, domain.ErrParseError), "%q: %v", text, err)
		assert.Equal(t, "parse_error", domain.Code(err))
	}
}

func TestGenerateCSVQuotesEverything(t *testing.T) {
	got := GenerateCSV([][]string{{"id", `the "best"`}, {"1", ""}}, ',')
	assert.Equal(t, "\"id\",\"the \"\"best\"\"\"\n\"1\",\"\"\n", got)
}

func TestGenerateThenParseRoundTrips(t *testing.T) {
	records := [][]string{
		{"customer", "site", "device"},
		{"Acme, Inc.", `North "A"`, "gw-01"},
		{"", "tab\there", "semi;colon"},
		{""},
		{"last"},
	}
	for _, delimiter := range []rune{',', ';', '\t', '|'} {
		got, err := ParseCSV(GenerateCSV(records, delimiter), delimiter)
		require.NoError(t, err)
		if diff := cmp.Diff(records, got); diff != "" {
			t.Errorf("round trip with %q mismatch (-want +got):\n%s", delimiter, diff)
		}
	}

	text := GenerateCSV([][]string{{"a"}, {}, {"b"}}, ',')
	assert.Equal(t, "\"a\"\n\"\"\n\"b\"\n", text)
	got, err := ParseCSV(text, ',')
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {""}, {"b"}}, got)
}
