package processor_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mediassist/pkg/processor"
)

// reassemble drops the known overlap from every chunk after the first.
func reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		b.WriteString(string([]rune(chunk)[overlap:]))
	}
	return b.String()
}

const report = `Discharge summary.

The patient was admitted with a persistent cough and mild fever. Chest imaging showed no consolidation!
Blood tests were unremarkable? Oxygen saturation remained above 95 percent throughout the stay.

Medication: paracetamol 500 mg as needed for fever. Follow-up with the general practitioner in two weeks.
Ünïcödé notes — température normale, 体温正常.`

func TestProcessor_RoundTrip(t *testing.T) {
	inputs := []string{
		report,
		strings.Repeat("abcdefghij", 57),
		strings.Repeat("word ", 300),
		strings.Repeat("体温正常。", 120),
	}
	params := []struct{ size, overlap int }{
		{1000, 200},
		{100, 20},
		{50, 10},
		{17, 16},
		{5, 0},
		{1, 0},
	}

	for _, text := range inputs {
		for _, pp := range params {
			p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: pp.size, ChunkOverlap: pp.overlap})
			require.NoError(t, err)

			chunks, err := p.Split(text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, text, reassemble(chunks, pp.overlap), "size=%d overlap=%d", pp.size, pp.overlap)
			for i, chunk := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), pp.size)
				if i > 0 {
					prev := []rune(chunks[i-1])
					assert.Equal(t, string(prev[len(prev)-pp.overlap:]), string([]rune(chunk)[:pp.overlap]))
				}
			}
		}
	}
}

func TestProcessor_ShortInput(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	chunks, err := p.Split("Patient has mild fever.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Patient has mild fever."}, chunks)

	exact := strings.Repeat("x", 1000)
	chunks, err = p.Split(exact)
	require.NoError(t, err)
	assert.Equal(t, []string{exact}, chunks)

	chunks, err = p.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_Deterministic(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 80, ChunkOverlap: 15})
	require.NoError(t, err)

	first, err := p.Split(report)
	require.NoError(t, err)
	second, err := p.Split(report)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProcessor_PrefersBoundaries(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 40, ChunkOverlap: 5})
	require.NoError(t, err)

	text := "Alpha beta gamma delta.\n\nEpsilon zeta eta theta iota kappa lambda mu."
	chunks, err := p.Split(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "Alpha beta gamma delta.\n\n", chunks[0])
	assert.Equal(t, text, reassemble(chunks, 5))
}

func TestProcessor_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  processor.ProcessorConfig
		wantErr bool
	}{
		{"defaults", processor.ProcessorConfig{}, false},
		{"overlap equals size", processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 100}, true},
		{"negative overlap", processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: -1}, true},
		{"negative size", processor.ProcessorConfig{ChunkSize: -10}, true},
		{"unknown mode", processor.ProcessorConfig{Mode: "semantic"}, true},
		{"recursive", processor.ProcessorConfig{Mode: processor.ModeRecursive}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := processor.NewWithConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessor_Recursive(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    120,
		ChunkOverlap: 20,
		Mode:         processor.ModeRecursive,
	})
	require.NoError(t, err)

	chunks, err := p.Split(report)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, strings.Join(chunks, " "), "paracetamol 500 mg")
}

func TestProcessor_CollapseWhitespace(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{CollapseWhitespace: true})
	require.NoError(t, err)

	chunks, err := p.Split("  Patient   has\n\nmild\tfever.  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Patient has mild fever."}, chunks)
}
