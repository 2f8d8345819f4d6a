package reduce

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clinmatch/internal/model"
	"github.com/ppiankov/clinmatch/internal/resolver"
)

func TestNewReducer(t *testing.T) {
	assert.Equal(t, DefaultLookahead, NewReducer(0).Lookahead())
	assert.Equal(t, DefaultLookahead, NewReducer(-2).Lookahead())
	assert.Equal(t, 7, NewReducer(7).Lookahead())
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name       string
		candidates []model.Candidate
		failure    *resolver.Failure
		want       model.Annotation
	}{
		{
			name:       "complete primary",
			candidates: []model.Candidate{{OMIM: "154700", MONDO: "0007947", Name: "Marfan syndrome"}},
			want: model.Annotation{
				OMIM:        "OMIM:154700",
				MONDO:       "MONDO:0007947",
				DiseaseName: "Marfan syndrome",
			},
		},
		{
			name:       "prefixes already present",
			candidates: []model.Candidate{{OMIM: "OMIM:154700", MONDO: "mondo:0007947", Name: "Marfan syndrome"}},
			want: model.Annotation{
				OMIM:        "OMIM:154700",
				MONDO:       "MONDO:0007947",
				DiseaseName: "Marfan syndrome",
			},
		},
		{
			name: "primary missing OMIM takes it from an alternative",
			candidates: []model.Candidate{
				{MONDO: "0007947", Name: "X"},
				{OMIM: "154700", Name: "X"},
			},
			want: model.Annotation{
				MONDO:         "MONDO:0007947",
				DiseaseName:   "X",
				Clarification: "OMIM не найден; ближайший OMIM:154700 (X)",
			},
		},
		{
			name: "primary missing both codes",
			candidates: []model.Candidate{
				{Name: "Ehlers-Danlos syndrome"},
				{MONDO: "0007522"},
				{OMIM: "130000", MONDO: "0007523", Name: "Ehlers-Danlos syndrome, classic type"},
			},
			want: model.Annotation{
				DiseaseName: "Ehlers-Danlos syndrome",
				Clarification: "OMIM не найден; MONDO не найден; ближайший MONDO:0007522; " +
					"ближайший OMIM:130000, MONDO:0007523 (Ehlers-Danlos syndrome, classic type)",
			},
		},
		{
			name: "unusable primary",
			candidates: []model.Candidate{
				{Note: "уточните фенотип"},
			},
			want: model.Annotation{
				Clarification: "OMIM не найден; MONDO не найден; найдено, но без кодов и названия; уточните фенотип",
			},
		},
		{
			name: "resolver note is appended last",
			candidates: []model.Candidate{
				{OMIM: "154700", Name: "Marfan syndrome", Note: "проверьте ген"},
				{MONDO: "0007947"},
			},
			want: model.Annotation{
				OMIM:          "OMIM:154700",
				DiseaseName:   "Marfan syndrome",
				Clarification: "MONDO не найден; ближайший MONDO:0007947; проверьте ген",
			},
		},
		{
			name:       "empty list",
			candidates: nil,
			want:       model.Annotation{Clarification: NotFound},
		},
		{
			name:    "failure",
			failure: &resolver.Failure{Kind: resolver.KindTimeout, Err: errors.New("deadline")},
			want:    model.Annotation{Clarification: "resolver timeout"},
		},
		{
			name:    "server failure",
			failure: &resolver.Failure{Kind: resolver.KindServerError, StatusCode: 502},
			want:    model.Annotation{Clarification: "resolver error (HTTP 502)"},
		},
	}

	r := NewReducer(DefaultLookahead)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Reduce(tt.candidates, tt.failure))
		})
	}
}

func TestReduce_DiseaseNameFallback(t *testing.T) {
	r := NewReducer(DefaultLookahead)

	got := r.Reduce([]model.Candidate{
		{OMIM: "1"},
		{OMIM: "2", Name: "OMIM only"},
		{MONDO: "3", Name: "From MONDO"},
	}, nil)
	assert.Equal(t, "From MONDO", got.DiseaseName)

	got = r.Reduce([]model.Candidate{
		{OMIM: "1"},
		{MONDO: "3"},
		{OMIM: "2", Name: "  OMIM only "},
	}, nil)
	assert.Equal(t, "OMIM only", got.DiseaseName)
}

func TestReduce_LookaheadCapsAlternatives(t *testing.T) {
	candidates := []model.Candidate{{MONDO: "0"}}
	for _, code := range []string{"1", "2", "3", "4", "5"} {
		candidates = append(candidates, model.Candidate{OMIM: code})
	}

	got := NewReducer(2).Reduce(candidates, nil)
	assert.Equal(t, "OMIM не найден; ближайший OMIM:1; ближайший OMIM:2", got.Clarification)

	got = NewReducer(10).Reduce(candidates, nil)
	assert.Equal(t, 5, strings.Count(got.Clarification, nearestPrefix))
}

func TestReduce_TruncatesAlternativeName(t *testing.T) {
	long := strings.Repeat("д", 50)
	got := NewReducer(1).Reduce([]model.Candidate{
		{MONDO: "1", Name: "primary"},
		{OMIM: "2", Name: long},
	}, nil)

	want := "OMIM не найден; ближайший OMIM:2 (" + strings.Repeat("д", nameRuneLimit) + ellipsisSuffix + ")"
	assert.Equal(t, want, got.Clarification)
}

func TestReduce_CandidatesWinOverFailure(t *testing.T) {
	got := NewReducer(0).Reduce(
		[]model.Candidate{{OMIM: "1", MONDO: "2", Name: "n"}},
		&resolver.Failure{Kind: resolver.KindTransport},
	)
	assert.Empty(t, got.Clarification)
}

func TestReduce_Deterministic(t *testing.T) {
	candidates := []model.Candidate{
		{MONDO: "0007947", Name: "X", Note: "n"},
		{OMIM: "154700", Name: "X"},
		{OMIM: "154705", MONDO: "1", Name: "Y"},
	}
	r := NewReducer(DefaultLookahead)
	first := r.Reduce(candidates, nil)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, r.Reduce(candidates, nil))
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, model.NoIssue, Render(""))
	assert.Equal(t, "OMIM не найден", Render("OMIM не найден"))
}
