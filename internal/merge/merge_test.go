package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

func d(source model.Source, id, caseRef string) *model.Decision {
	return &model.Decision{ID: id, Source: source, CaseReference: caseRef}
}

func TestMergeDisjointSources(t *testing.T) {
	govuk := []*model.Decision{
		d(model.SourceGovUK, "/d/1", "LON/1"),
		d(model.SourceGovUK, "/d/2", "LON/2"),
	}
	wales := []*model.Decision{
		d(model.SourceWales, "rac-0001", "RAC/0001"),
	}

	res := Merge(govuk, wales)
	assert.Len(t, res.Decisions, 3)
	assert.Empty(t, res.Collisions)
}

func TestMergeSameIDDifferentSourcesBothKept(t *testing.T) {
	res := Merge(
		[]*model.Decision{d(model.SourceGovUK, "0001", "LON/1")},
		[]*model.Decision{d(model.SourceWales, "0001", "RAC/1")},
	)
	assert.Len(t, res.Decisions, 2)
	assert.Empty(t, res.Collisions)
}

func TestMergeSameSourceCollisionFirstWins(t *testing.T) {
	res := Merge(
		[]*model.Decision{d(model.SourceGovUK, "/d/1", "first")},
		[]*model.Decision{d(model.SourceGovUK, "/d/1", "second")},
	)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "first", res.Decisions[0].CaseReference)
	require.Len(t, res.Collisions, 1)
	assert.Equal(t, "/d/1", res.Collisions[0].ID)
}

func TestMergeSelfMergeDoesNotGrow(t *testing.T) {
	snapshot := []*model.Decision{
		d(model.SourceGovUK, "/d/1", "LON/1"),
		d(model.SourceGovUK, "/d/2", "LON/2"),
	}
	res := Merge(snapshot, snapshot)
	assert.Len(t, res.Decisions, 2)
	assert.Len(t, res.Collisions, 2)
}

func TestMergeStableOrder(t *testing.T) {
	a := Merge(
		[]*model.Decision{d(model.SourceWales, "b", ""), d(model.SourceGovUK, "z", "")},
		[]*model.Decision{d(model.SourceGovUK, "a", "")},
	)
	b := Merge(
		[]*model.Decision{d(model.SourceGovUK, "a", "")},
		[]*model.Decision{d(model.SourceWales, "b", ""), d(model.SourceGovUK, "z", "")},
	)

	require.Len(t, a.Decisions, 3)
	assert.Equal(t, "a", a.Decisions[0].ID)
	assert.Equal(t, "z", a.Decisions[1].ID)
	assert.Equal(t, "b", a.Decisions[2].ID)
	for i := range a.Decisions {
		assert.Equal(t, a.Decisions[i].Key(), b.Decisions[i].Key())
	}
}

func TestMergeClonesInputs(t *testing.T) {
	orig := d(model.SourceGovUK, "/d/1", "LON/1")
	res := Merge([]*model.Decision{orig})
	res.Decisions[0].CaseReference = "mutated"
	assert.Equal(t, "LON/1", orig.CaseReference)
}
