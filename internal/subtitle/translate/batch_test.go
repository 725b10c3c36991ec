package translate

import (
	"fmt"
	"strings"
	"testing"
)

func makeTasks(n, textLen int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{ID: fmt.Sprintf("seg_%d", i), TextEN: strings.Repeat("x", textLen)}
	}
	return tasks
}

func flatten(batches []Batch) []Task {
	var out []Task
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func TestEstimateCost(t *testing.T) {
	task := Task{ID: "seg_0", TextEN: "a<b"}
	// {"id":"seg_0","text_en":"a<b"} plus " , "
	want := len(`{"id":"seg_0","text_en":"a<b"}`) + 3
	if got := EstimateCost(task); got != want {
		t.Errorf("EstimateCost() = %d, want %d", got, want)
	}
	cjk := Task{ID: "seg_0", TextEN: "你好"}
	if got := EstimateCost(cjk); got != len(`{"id":"seg_0","text_en":"xx"}`)+3 {
		t.Errorf("EstimateCost(cjk) = %d, runes should be counted", got)
	}
}

func TestCharBudget(t *testing.T) {
	if got := CharBudget(DefaultTokensPerBatch, CharsPerToken); got != 20000 {
		t.Errorf("CharBudget() = %d, want 20000", got)
	}
	if got := CharBudget(100, 0); got != 250 {
		t.Errorf("CharBudget(100, 0) = %d, want 250", got)
	}
}

func TestMakeBatchesBudget(t *testing.T) {
	tasks := makeTasks(10, 50)
	cost := EstimateCost(tasks[0])
	budget := cost*3 + 1

	batches := MakeBatches(tasks, budget, 100)
	if len(batches) != 4 {
		t.Fatalf("got %d batches, want 4", len(batches))
	}
	for i, b := range batches {
		total := 0
		for _, task := range b {
			total += EstimateCost(task)
		}
		if total > budget {
			t.Errorf("batch %d cost %d exceeds budget %d", i, total, budget)
		}
	}

	got := flatten(batches)
	for i := range tasks {
		if got[i] != tasks[i] {
			t.Fatalf("task order changed at %d: %v != %v", i, got[i], tasks[i])
		}
	}
}

func TestMakeBatchesMaxItems(t *testing.T) {
	batches := MakeBatches(makeTasks(7, 1), 1_000_000, 3)
	sizes := []int{}
	for _, b := range batches {
		sizes = append(sizes, len(b))
	}
	if fmt.Sprint(sizes) != "[3 3 1]" {
		t.Errorf("batch sizes = %v, want [3 3 1]", sizes)
	}
}

func TestMakeBatchesOversizedTask(t *testing.T) {
	tasks := []Task{
		{ID: "a", TextEN: "short"},
		{ID: "b", TextEN: strings.Repeat("y", 500)},
		{ID: "c", TextEN: "short"},
	}
	batches := MakeBatches(tasks, 100, 10)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[1]) != 1 || batches[1][0].ID != "b" {
		t.Errorf("oversized task not isolated: %v", batches[1])
	}
}

func TestBatcherBaseCost(t *testing.T) {
	tasks := makeTasks(4, 10)
	cost := EstimateCost(tasks[0])
	b := Batcher{CharBudget: 100 + cost*2, MaxItems: 10, BaseCost: 100}
	batches := b.Make(tasks)
	if len(batches) != 2 {
		t.Errorf("got %d batches, want 2", len(batches))
	}
}

func TestMakeBatchesEmpty(t *testing.T) {
	if got := MakeBatches(nil, 100, 10); len(got) != 0 {
		t.Errorf("MakeBatches(nil) = %v", got)
	}
}
