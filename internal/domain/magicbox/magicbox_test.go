package magicbox

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
)

func tiles(p *Puzzle) []int {
	var out []int
	b := p.Board()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if !p.IsClue(x, y) && b[y][x] != 0 {
				out = append(out, b[y][x])
			}
		}
	}
	out = append(out, p.Rack()...)
	if p.Selected() != 0 {
		out = append(out, p.Selected())
	}
	sort.Ints(out)
	return out
}

func TestInitialRack(t *testing.T) {
	p := NewDefault(chance.New(3))
	assert.Len(t, p.Rack(), 6)
	assert.Zero(t, p.Selected())
	b := p.Board()
	assert.Equal(t, 13, b[0][0])
	assert.Equal(t, 63, b[1][0])
	assert.Equal(t, 3, b[2][1])
	assert.Equal(t, []int{23, 33, 43, 53, 73, 83}, tiles(p))
}

func TestTilesAreConserved(t *testing.T) {
	src := chance.New(17)
	p := NewDefault(src)
	want := tiles(p)
	for step := 0; step < 500; step++ {
		if src.Intn(2) == 0 && len(p.Rack()) > 0 {
			_, err := p.PickRack(src.Intn(len(p.Rack())))
			require.NoError(t, err)
		} else {
			_, err := p.PickBoard(src.Intn(Size), src.Intn(Size))
			require.NoError(t, err)
		}
		require.Equal(t, want, tiles(p), "step %d", step)
	}
}

func TestClueCellsAreImmutable(t *testing.T) {
	p := NewDefault(chance.New(1))
	_, err := p.PickRack(0)
	require.NoError(t, err)
	held := p.Selected()
	before := p.Board()

	for _, c := range DefaultClues {
		out, err := p.PickBoard(c.X, c.Y)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, out)
	}
	assert.Equal(t, before, p.Board())
	assert.Equal(t, held, p.Selected())
}

func TestPickRackSwapsHand(t *testing.T) {
	p := NewDefault(chance.New(2))
	rack := p.Rack()

	out, err := p.PickRack(0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTaken, out)
	assert.Equal(t, rack[0], p.Selected())

	out, err = p.PickRack(0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSwapped, out)
	assert.Equal(t, rack[1], p.Selected())
	got := p.Rack()
	assert.Equal(t, rack[0], got[len(got)-1])
}

func TestPickBoardOutcomes(t *testing.T) {
	p := NewDefault(chance.New(2))
	out, err := p.PickBoard(2, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, out, "empty hand on empty cell")

	p.PickRack(0)
	out, _ = p.PickBoard(2, 2)
	assert.Equal(t, OutcomePlaced, out)
	p.PickRack(0)
	out, _ = p.PickBoard(2, 2)
	assert.Equal(t, OutcomeSwapped, out)
	out, _ = p.PickBoard(1, 1)
	assert.Equal(t, OutcomePlaced, out)
	out, _ = p.PickBoard(1, 1)
	assert.Equal(t, OutcomeTaken, out)
}

func TestOutOfRange(t *testing.T) {
	p := NewDefault(chance.New(1))
	_, err := p.PickRack(6)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = p.PickBoard(3, 0)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = p.PickBoard(0, -1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

// solve places every rack tile on its solution cell.
func solve(t *testing.T, p *Puzzle) {
	t.Helper()
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if p.IsClue(x, y) {
				continue
			}
			want := DefaultSolution[y][x]
			for i, v := range p.Rack() {
				if v == want {
					_, err := p.PickRack(i)
					require.NoError(t, err)
					break
				}
			}
			out, err := p.PickBoard(x, y)
			require.NoError(t, err)
			require.Equal(t, OutcomePlaced, out)
		}
	}
}

func TestSolveAndSums(t *testing.T) {
	p := NewDefault(chance.New(8))
	assert.False(t, p.IsSolved())
	assert.Equal(t, 13+63, p.ColSum(0))

	solve(t, p)
	assert.True(t, p.IsSolved())
	assert.Empty(t, p.Rack())
	for i := 0; i < Size; i++ {
		assert.True(t, OnTarget(p.RowSum(i)), "row %d", i)
		assert.True(t, OnTarget(p.ColSum(i)), "col %d", i)
		assert.Equal(t, 13.0, Display(p.RowSum(i)))
	}
	assert.True(t, OnTarget(p.DiagSum(false)))
	assert.True(t, OnTarget(p.DiagSum(true)))
	assert.Equal(t, "13 83 33\n63 43 23\n53 3 73\n*", p.String())
}

func TestTakingATileBreaksSolved(t *testing.T) {
	p := NewDefault(chance.New(8))
	solve(t, p)
	out, err := p.PickBoard(2, 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeTaken, out)
	assert.False(t, p.IsSolved())
	p.PickBoard(2, 2)
	assert.True(t, p.IsSolved())
}

func TestResetRedealsRack(t *testing.T) {
	p := NewDefault(chance.New(4))
	solve(t, p)
	p.Reset()
	assert.False(t, p.IsSolved())
	assert.Len(t, p.Rack(), 6)
	assert.Zero(t, p.Selected())
}

func TestInvalidConstruction(t *testing.T) {
	_, err := New(DefaultSolution, []grid.Pos{{X: 3, Y: 0}}, chance.New(1))
	assert.True(t, errors.Is(err, ErrInvalidSolution))
	bad := DefaultSolution
	bad[1][1] = 0
	_, err = New(bad, DefaultClues, chance.New(1))
	assert.True(t, errors.Is(err, ErrInvalidSolution))
}

func TestQueriesArePure(t *testing.T) {
	p := NewDefault(chance.New(6))
	p.PickRack(2)
	p.PickBoard(1, 1)
	board, rack, held := p.Board(), p.Rack(), p.Selected()
	for i := 0; i < 5; i++ {
		p.IsSolved()
		p.RowSum(1)
		p.DiagSum(true)
	}
	assert.Equal(t, board, p.Board())
	assert.Equal(t, rack, p.Rack())
	assert.Equal(t, held, p.Selected())
}
