package trickle_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/pwalus/trickle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanAll feeds fragments through Scan, carrying state between calls,
// and flushes any final residue the way Buffers.FlushResidue does.
// It returns the reassembled streams and every intermediate residue.
func scanAll(fragments []string) (main, thinking string, residues []string) {
	var res trickle.ScanResult
	var mainB, thinkB strings.Builder
	for _, f := range fragments {
		res = trickle.Scan(res.Residue, res.InsideThinking, f)
		mainB.WriteString(res.Main)
		thinkB.WriteString(res.Thinking)
		residues = append(residues, res.Residue)
	}
	if res.Residue != "" {
		if res.InsideThinking {
			thinkB.WriteString(res.Residue)
		} else {
			mainB.WriteString(res.Residue)
		}
	}
	return mainB.String(), thinkB.String(), residues
}

func TestScan_MarkerSplitAcrossFragments(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"<th", "ink>ana", "lysis</thi", "nk>answer"})
	assert.Equal(t, "answer", main)
	assert.Equal(t, "analysis", thinking)
}

func TestScan_NoMarkers(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"hello ", "world"})
	assert.Equal(t, "hello world", main)
	assert.Equal(t, "", thinking)
}

func TestScan_SingleFragment(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"a<think>b</think>c"})
	assert.Equal(t, "ac", main)
	assert.Equal(t, "b", thinking)
}

func TestScan_MultipleRegions(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"x<think>1</think>y<think>2</think>z"})
	assert.Equal(t, "xyz", main)
	assert.Equal(t, "12", thinking)
}

func TestScan_StrayEndMarkerIsLiteral(t *testing.T) {
	t.Parallel()
	// An end marker with no open region is ordinary text: no implicit
	// region is opened. Intentional robustness against malformed model
	// output, not an oversight.
	main, thinking, _ := scanAll([]string{"before </think> after"})
	assert.Equal(t, "before </think> after", main)
	assert.Equal(t, "", thinking)
}

func TestScan_NestedStartMarkerIsLiteral(t *testing.T) {
	t.Parallel()
	// A start marker inside an open region does not nest; it is kept as
	// literal thinking text.
	main, thinking, _ := scanAll([]string{"<think>a<think>b</think>c"})
	assert.Equal(t, "c", main)
	assert.Equal(t, "a<think>b", thinking)
}

func TestScan_CaseSensitive(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"<THINK>loud</THINK>"})
	assert.Equal(t, "<THINK>loud</THINK>", main)
	assert.Equal(t, "", thinking)
}

func TestScan_FalseMarkerPrefix(t *testing.T) {
	t.Parallel()
	// "<think" held back as residue must be released once the next
	// fragment shows it never completes the marker.
	main, thinking, _ := scanAll([]string{"a<th", "inker>b"})
	assert.Equal(t, "a<thinker>b", main)
	assert.Equal(t, "", thinking)
}

func TestScan_UnterminatedRegionFlushesToThinking(t *testing.T) {
	t.Parallel()
	main, thinking, _ := scanAll([]string{"<think>some unterm"})
	assert.Equal(t, "", main)
	assert.Equal(t, "some unterm", thinking)
}

func TestScan_PartitionInvariance(t *testing.T) {
	t.Parallel()
	// Splitting the text at every possible set of cut points must give
	// the same result as scanning it whole.
	text := "a<think>b</think>c"
	wantMain, wantThinking, _ := scanAll([]string{text})
	require.Equal(t, "ac", wantMain)
	require.Equal(t, "b", wantThinking)

	n := len(text)
	for mask := 0; mask < 1<<(n-1); mask++ {
		var frags []string
		start := 0
		for i := 0; i < n-1; i++ {
			if mask&(1<<i) != 0 {
				frags = append(frags, text[start:i+1])
				start = i + 1
			}
		}
		frags = append(frags, text[start:])

		main, thinking, _ := scanAll(frags)
		if main != wantMain || thinking != wantThinking {
			t.Fatalf("partition %q: got main=%q thinking=%q, want %q/%q",
				frags, main, thinking, wantMain, wantThinking)
		}
	}
}

func TestScan_PartitionInvarianceRandom(t *testing.T) {
	t.Parallel()
	text := "intro <think>step one</think> middle <think>step two" +
		"</think> outro with a stray </think> and a <thinker>"
	wantMain, wantThinking, _ := scanAll([]string{text})

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 500; trial++ {
		var frags []string
		for start := 0; start < len(text); {
			size := 1 + rng.IntN(9)
			end := start + size
			if end > len(text) {
				end = len(text)
			}
			frags = append(frags, text[start:end])
			start = end
		}
		main, thinking, _ := scanAll(frags)
		require.Equal(t, wantMain, main, "trial %d: %q", trial, frags)
		require.Equal(t, wantThinking, thinking, "trial %d", trial)
	}
}

func TestScan_ResidueBounded(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("<think>reason</think>answer<", 8) + "think>tail"
	rng := rand.New(rand.NewPCG(3, 4))
	for trial := 0; trial < 200; trial++ {
		var frags []string
		for start := 0; start < len(text); {
			end := start + 1 + rng.IntN(5)
			if end > len(text) {
				end = len(text)
			}
			frags = append(frags, text[start:end])
			start = end
		}
		_, _, residues := scanAll(frags)
		for _, r := range residues {
			require.LessOrEqual(t, len(r), trickle.MaxResidue, "residue %q", r)
		}
	}
}
