package importer

import (
	"reflect"
	"testing"
)

func TestParsePairs(t *testing.T) {
	cases := []struct {
		raw  string
		want []namePair
	}{
		{"Ada Lovelace (The Visionary) + Grace Hopper (The Builder)", []namePair{{"Ada Lovelace", "The Visionary"}, {"Grace Hopper", "The Builder"}}},
		{"Ada (A), and Grace (B)", []namePair{{"Ada", "A"}, {"Grace", "B"}}},
		{"Ada Lovelace + Grace Hopper and Alan Turing.", []namePair{{name: "Ada Lovelace"}, {name: "Grace Hopper"}, {name: "Alan Turing"}}},
		{"Al, Bo", nil},
	}
	for _, tc := range cases {
		if got := parsePairs(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parsePairs(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestSentences(t *testing.T) {
	got := sentences("One. Two!  Three? Four")
	want := []string{"One.", "Two!", "Three?", "Four"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sentences = %q, want %q", got, want)
	}
	if first := firstSentence("v1.2 ships today. More later."); first != "v1.2 ships today" {
		t.Fatalf("firstSentence = %q", first)
	}
}

func TestEpisodeIDIsBounded(t *testing.T) {
	id := episodeID("A very long theme title that keeps going: and a subtitle that also keeps going for a while")
	if len([]rune(id)) > maxEpisodeIDLength || id[len(id)-1] == '-' {
		t.Fatalf("unexpected id %q", id)
	}
}
