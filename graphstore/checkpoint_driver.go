package graphstore

import (
	"fmt"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
)

// Checkpoint builds a new level from source, following the engine's
// ten-step pipeline. Exactly one checkpoint runs at a time; callers must
// serialize (enforced here by Graph's mutex). Failure mid-pipeline is
// fatal to the engine process — this function panics on
// precondition violations and returns an error in two cases: a
// shrinking node-ID space (ErrLevelShrunk) and a failed Sync of the
// attached backing strategy.
func (g *Graph) Checkpoint(source CheckpointSource) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := int(source.MaxNodeID()) + 1
	if source.MaxNodeID() < 0 {
		n = 0
	}
	if n < g.latestN {
		return fmt.Errorf("%w: got %d, previous %d", ErrLevelShrunk, n, g.latestN)
	}

	// Steps 1-2: read deltas, build dense degree arrays.
	deltas := make([]NodeDelta, n)
	newOut := make([]int, n)
	delOut := make([]int, n)
	var newIn, delIn []int
	if g.in != nil {
		newIn = make([]int, n)
		delIn = make([]int, n)
	}
	parallelFor(n, func(i int) {
		d := source.NodeDelta(mlcsr.NodeID(i))
		deltas[i] = d
		newOut[i] = len(d.NewOutEdges)
		delOut[i] = d.DeletedOut
		if g.in != nil {
			newIn[i] = len(d.NewInEdges)
			delIn[i] = d.DeletedIn
		}
	})

	// A source that reports no in-edges of its own gets them derived from
	// its out-edges: out-edge i->t becomes an in-edge of t with source i.
	derive := g.in != nil
	for i := 0; derive && i < n; i++ {
		derive = newIn[i] == 0
	}
	for i := 0; derive && i < n; i++ {
		for _, oe := range deltas[i].NewOutEdges {
			t := oe.Target
			deltas[t].NewInEdges = append(deltas[t].NewInEdges, InEdgeDelta{Source: mlcsr.NodeID(i)})
			newIn[t]++
		}
	}

	// Step 3: fill the out-edges vertex table.
	outBuilder := g.out.InitLevelFromDegrees(n, newOut, delOut)
	outLevel := outBuilder.Level()
	parallelFor(n, func(i int) { outBuilder.InitNode(i) })
	outBuilder.FinishLevelVertices()

	// Step 4: give every registered edge property and the out->in half of
	// the translation map a fresh level sized to the new edge table; every
	// translation slot starts as NilEdgeID until a pairing is recorded.
	for _, p := range g.edgeProps {
		p.InitLevel(outLevel, outBuilder.Capacity())
	}
	if g.outToIn != nil {
		g.outToIn.InitLevel(outLevel, outBuilder.Capacity())
		for k := 0; k < outBuilder.Capacity(); k++ {
			g.outToIn.Set(mlcsr.EncodeEdgeID(outLevel, uint64(k)), mlcsr.NilEdgeID)
		}
	}

	// Step 5: emit out-edges and their properties.
	parallelFor(n, func(i int) {
		d := deltas[i]
		for j, oe := range d.NewOutEdges {
			outBuilder.WriteValue(i, j, oe.Target)
			if len(oe.Props) == 0 {
				continue
			}
			eid := outBuilder.EdgeIDFor(i, j)
			for name, val := range oe.Props {
				if binding, ok := g.edgeProps[name]; ok {
					binding.SetAny(eid, val)
				}
			}
		}
	})

	// Step 6: finish the out-edges level.
	outBuilder.FinishLevelEdges()

	// Step 7: repeat 3-6 for in, and pair up the translation map.
	haveInLevel := false
	var inLevel levels.ID
	var inBuilder *mlcsr.LevelBuilder
	if g.in != nil {
		inBuilder = g.in.InitLevelFromDegrees(n, newIn, delIn)
		inLevelID := inBuilder.Level()
		inLevel = inLevelID
		haveInLevel = true
		parallelFor(n, func(i int) { inBuilder.InitNode(i) })
		inBuilder.FinishLevelVertices()
		parallelFor(n, func(i int) {
			d := deltas[i]
			for j, ie := range d.NewInEdges {
				inBuilder.WriteValue(i, j, ie.Source)
			}
		})
		inBuilder.FinishLevelEdges()

		if g.inToOut != nil {
			g.inToOut.InitLevel(inLevelID, inBuilder.Capacity())
			for k := 0; k < inBuilder.Capacity(); k++ {
				g.inToOut.Set(mlcsr.EncodeEdgeID(inLevelID, uint64(k)), mlcsr.NilEdgeID)
			}
			parallelFor(n, func(i int) {
				d := deltas[i]
				for j, oe := range d.NewOutEdges {
					outEID := outBuilder.EdgeIDFor(i, j)
					inEID := g.in.Find(oe.Target, inLevelID, mlcsr.NodeID(i))
					if inEID.IsNil() {
						continue
					}
					g.outToIn.Set(outEID, inEID)
					g.inToOut.Set(inEID, outEID)
				}
			})
		}
	}

	// Step 8: finish every edge property and the translation map.
	for _, p := range g.edgeProps {
		p.Finish(outLevel)
	}
	if g.outToIn != nil {
		g.outToIn.Finish(outLevel)
	}
	if g.inToOut != nil && haveInLevel {
		g.inToOut.Finish(inLevel)
	}

	// Step 9: cow_init (or dense_init) and freeze every node property onto
	// size N, applying any per-node values the source supplied.
	for name, p := range g.nodeProps {
		level := p.InitLevel(n)
		for i := 0; i < n; i++ {
			val, ok := deltas[i].NodeProps[name]
			if !ok {
				continue
			}
			p.SetAny(level, i, val)
		}
		p.Freeze(level)
	}

	// Step 10: optionally sync backing storage.
	if g.backingStore != nil {
		if err := g.backingStore.Sync(); err != nil {
			return fmt.Errorf("graphstore: backing sync failed: %w", err)
		}
	}

	g.latestN = n
	return nil
}
