package sqlitevec

import (
	"database/sql/driver"
	"fmt"
	"sync"

	vecengine "github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vector"
	"modernc.org/sqlite"
)

const (
	fnL2Distance       = "vec_l2"
	fnCosineSimilarity = "vec_cosine"
	// sqlite-vec has no inner product function.
	fnNegDot = "codevec_neg_dot"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs the vector functions on the sqlite driver.
// They become available on connections opened afterwards.
func registerFunctions() error {
	registerOnce.Do(func() {
		if registerErr = vecengine.RegisterVectorFunctions(nil); registerErr != nil {
			return
		}
		if err := sqlite.RegisterDeterministicScalarFunction(fnNegDot, 2, negDot); err != nil {
			registerErr = fmt.Errorf("sqlitevec: register %s: %w", fnNegDot, err)
		}
	})
	return registerErr
}

// negDot returns the negated inner product so that ascending order ranks the most similar first.
func negDot(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	a, err := blobVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blobVector(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%s: vector length mismatch: %d != %d", fnNegDot, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return -dot, nil
}

func blobVector(value driver.Value) ([]float32, error) {
	blob, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected vector blob, got %T", value)
	}
	return vector.DecodeEmbedding(blob)
}
