package instancing

import (
	"context"
	"runtime"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/instancer/engine/renderer/components"
)

// InstanceDataSize is the stride of one InstanceData in the instance buffer.
const InstanceDataSize uint32 = 64

/**
 * @brief Per-instance vertex attributes as laid out in GPU memory.
 * Every transform row is padded to 16 bytes.
 */
type InstanceData struct {
	Color      [4]float32
	TransformX [3]float32
	_          float32
	TransformY [3]float32
	_          float32
	TransformZ [3]float32
	_          float32
}

// EncodeInstance converts one record and its transform. Values are copied
// as they are, without clamping or premultiplying.
func EncodeInstance(rec *Instance, t *components.Transform) InstanceData {
	m := t.Matrix()
	return InstanceData{
		Color:      rec.Color.Array(),
		TransformX: m.Row(0).Array(),
		TransformY: m.Row(1).Array(),
		TransformZ: m.Row(2).Array(),
	}
}

// InstanceBytes reinterprets data as the raw bytes uploaded to the GPU.
func InstanceBytes(data []InstanceData) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(InstanceDataSize))
}

// Encoder turns batches into instance arrays.
type Encoder struct {
	parallel bool
	limit    int
}

// NewEncoder returns an encoder. With parallel set, EncodeAll spreads
// batches over GOMAXPROCS goroutines.
func NewEncoder(parallel bool) *Encoder {
	return &Encoder{
		parallel: parallel,
		limit:    runtime.GOMAXPROCS(0),
	}
}

// Encode returns the instance array of a batch, in batch order.
func (e *Encoder) Encode(b *Batch) []InstanceData {
	out := make([]InstanceData, len(b.Records))
	for i, rec := range b.Records {
		out[i] = EncodeInstance(rec, b.Transforms[i])
	}
	return out
}

/**
 * @brief Encodes every batch. The result is indexed like batches and is
 * identical whether or not encoding ran in parallel.
 */
func (e *Encoder) EncodeAll(ctx context.Context, batches []*Batch) ([][]InstanceData, error) {
	out := make([][]InstanceData, len(batches))
	if !e.parallel || len(batches) < 2 {
		for i, b := range batches {
			out[i] = e.Encode(b)
		}
		return out, ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, b := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.Encode(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
