package engine

import (
	"bytes"
	"context"
	"testing"
)

func benchBuffer(b *testing.B, size int) *Buffer {
	b.Helper()
	e := New()
	b.Cleanup(func() { e.Shutdown(context.Background()) })
	buf, err := e.NewBuffer(bytes.Repeat([]byte("0123456789abcdef"), size/16+1))
	if err != nil {
		b.Fatalf("new buffer: %v", err)
	}
	return buf
}

func BenchmarkInsertSequential(b *testing.B) {
	buf := benchBuffer(b, 1<<16)
	text := []byte("x")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := buf.Insert(int64(i), text); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInsertScattered(b *testing.B) {
	buf := benchBuffer(b, 1<<16)
	text := []byte("x")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pos := int64(i*7919) % buf.Len()
		if _, err := buf.Insert(pos, text); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSnapshot(b *testing.B) {
	buf := benchBuffer(b, 1<<20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap, _ := buf.Snapshot()
		snap.Release()
	}
}

func BenchmarkFindAll(b *testing.B) {
	buf := benchBuffer(b, 1<<20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := buf.FindAll([]byte("89abcdef"), false); len(got) == 0 {
			b.Fatal("no matches")
		}
	}
}

func BenchmarkSourceScan(b *testing.B) {
	buf := benchBuffer(b, 1<<20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src, _ := buf.Source()
		var sum byte
		for j := int64(0); j < src.Len(); j += 4096 {
			sum += src.At(j)
		}
		_ = sum
	}
}
