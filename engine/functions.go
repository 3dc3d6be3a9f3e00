package engine

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/viant/vec/search"
	sqlite "modernc.org/sqlite"
)

// RegisterVectorFunctions registers vec_l2 and vec_dims with the driver so
// they are available on new connections opened after this call.
// Note: existing open connections will not see new functions. Calling it again
// is a no-op.
func RegisterVectorFunctions(_ *sql.DB) error {
	if err := sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2Impl); err != nil && !alreadyRegistered(err) {
		return err
	}
	if err := sqlite.RegisterDeterministicScalarFunction("vec_dims", 1, vecDimsImpl); err != nil && !alreadyRegistered(err) {
		return err
	}
	return nil
}

func alreadyRegistered(err error) bool {
	return strings.Contains(err.Error(), "already registered")
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	default:
		return nil, fmt.Errorf("engine: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_l2: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("vec_l2: dimension mismatch %d vs %d", len(a), len(b))
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

func vecDimsImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("vec_dims: expected 1 argument, got %d", len(args))
	}
	v, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return int64(len(v)), nil
}

// Local minimal helper; importing vector here would cycle through its tests.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("engine: invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
