package chunker

// Span is a half-open index range [Start, End) into an input slice.
type Span struct {
	Start int
	End   int
}

// Len returns the number of items covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Partition splits n items into consecutive spans of at most size items.
// A non-positive size falls back to 5.
func Partition(n, size int) []Span {
	if size <= 0 {
		size = 5
	}
	if n <= 0 {
		return nil
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: i, End: end})
	}
	return spans
}
