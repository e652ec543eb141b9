package chunk

import "fmt"

// Plan is the chunk layout for one upload, derived purely from the file size
// and the platform's chunk-size constraints.
type Plan struct {
	ChunkSize   int64
	TotalChunks int64
}

// Leftover returns the remainder that the final chunk absorbs. The final
// chunk is ChunkSize+Leftover bytes; TotalChunks never counts it separately.
func (p Plan) Leftover(fileSize int64) int64 {
	return fileSize - p.ChunkSize*p.TotalChunks
}

// FinalChunkSize returns the byte length of the last chunk.
func (p Plan) FinalChunkSize(fileSize int64) int64 {
	return p.ChunkSize + p.Leftover(fileSize)
}

// NewPlan computes the chunk layout for a file of fileSize bytes.
//
// Files at or under minChunk upload as a single chunk. Larger files use
// minChunk-sized chunks up to maxChunk total size, and maxChunk-sized chunks
// beyond that; in both cases the chunk count is the floor division of the
// file size by the chunk size, with the remainder folded into the last chunk.
func NewPlan(fileSize, minChunk, maxChunk int64) (Plan, error) {
	if fileSize <= 0 {
		return Plan{}, fmt.Errorf("file size must be positive, got %d", fileSize)
	}
	if minChunk <= 0 || maxChunk < minChunk {
		return Plan{}, fmt.Errorf("invalid chunk bounds [%d, %d]", minChunk, maxChunk)
	}

	if fileSize <= minChunk {
		return Plan{ChunkSize: fileSize, TotalChunks: 1}, nil
	}

	chunkSize := minChunk
	if fileSize > maxChunk {
		chunkSize = maxChunk
	}

	count := fileSize / chunkSize
	if count == 0 {
		return Plan{ChunkSize: fileSize, TotalChunks: 1}, nil
	}
	return Plan{ChunkSize: chunkSize, TotalChunks: count}, nil
}
