package graphstore

import (
	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
	"github.com/llama-mlcsr/llama/property"
)

// edgePropertyBinding type-erases property.EdgeProperty[T] so Graph can hold
// a name-indexed registry of properties with different element types in one
// map and drive them uniformly during checkpoint.
type edgePropertyBinding interface {
	InitLevel(level levels.ID, capacity int)
	SetAny(e mlcsr.EdgeID, value any) bool
	Finish(level levels.ID)
	DropLevel(level levels.ID)
}

type edgePropertyAdapter[T any] struct {
	inner *property.EdgeProperty[T]
}

func (a *edgePropertyAdapter[T]) InitLevel(level levels.ID, capacity int) {
	a.inner.InitLevel(level, capacity)
}

func (a *edgePropertyAdapter[T]) SetAny(e mlcsr.EdgeID, value any) bool {
	v, ok := value.(T)
	if !ok {
		return false
	}
	a.inner.Set(e, v)
	return true
}

func (a *edgePropertyAdapter[T]) Finish(level levels.ID) { a.inner.Finish(level) }
func (a *edgePropertyAdapter[T]) DropLevel(level levels.ID) { a.inner.DropLevel(level) }

// nodePropertyBinding type-erases property.NodeProperty[T] the same way.
type nodePropertyBinding interface {
	InitLevel(size int) levels.ID
	SetAny(level levels.ID, node int, value any) bool
	Freeze(level levels.ID)
	KeepOnlyRecent(k int)
}

type nodePropertyAdapter[T any] struct {
	inner *property.NodeProperty[T]
}

func (a *nodePropertyAdapter[T]) InitLevel(size int) levels.ID {
	id, _ := a.inner.InitLevel(size)
	return id
}

func (a *nodePropertyAdapter[T]) SetAny(level levels.ID, node int, value any) bool {
	v, ok := value.(T)
	if !ok {
		return false
	}
	a.inner.Set(level, node, v)
	return true
}

func (a *nodePropertyAdapter[T]) Freeze(level levels.ID)     { a.inner.Freeze(level) }
func (a *nodePropertyAdapter[T]) KeepOnlyRecent(k int)       { a.inner.KeepOnlyRecent(k) }
