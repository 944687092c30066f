package safety

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"basesniper/internal/model"
)

type fakeReader struct {
	code []byte
	err  error
}

func (f *fakeReader) CodeAt(ctx context.Context, address common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, f.err
}

func TestScanSafeBytecode(t *testing.T) {
	code, _ := hex.DecodeString("60806040")
	scanner := NewScanner(&fakeReader{code: code}, time.Second, nil)

	verdict, err := scanner.Scan(context.Background(), common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != model.SafetySafe {
		t.Fatalf("expected safe, got %v", verdict)
	}
}

func TestScanDangerousSelectorIsUnsafe(t *testing.T) {
	// blacklist(address) selector embedded in otherwise-benign bytecode.
	code, _ := hex.DecodeString("608060405263" + "44df8e70" + "600080fd")
	scanner := NewScanner(&fakeReader{code: code}, time.Second, nil)

	verdict, err := scanner.Scan(context.Background(), common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != model.SafetyUnsafe {
		t.Fatalf("expected unsafe, got %v", verdict)
	}
}

func TestScanProxyPatternIsUnsafe(t *testing.T) {
	code, _ := hex.DecodeString("363d3d373d3d3d363d73")
	scanner := NewScanner(&fakeReader{code: code}, time.Second, nil)

	verdict, err := scanner.Scan(context.Background(), common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != model.SafetyUnsafe {
		t.Fatalf("expected unsafe for minimal-proxy prelude, got %v", verdict)
	}
}

func TestScanEmptyCodeIsUnsafe(t *testing.T) {
	scanner := NewScanner(&fakeReader{code: nil}, time.Second, nil)

	verdict, err := scanner.Scan(context.Background(), common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict != model.SafetyUnsafe {
		t.Fatalf("expected unsafe for empty code, got %v", verdict)
	}
}

func TestScanFetchErrorReturnsUnknown(t *testing.T) {
	scanner := NewScanner(&fakeReader{err: errors.New("rpc timeout")}, time.Second, nil)

	verdict, err := scanner.Scan(context.Background(), common.HexToAddress("0x1"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if verdict != model.SafetyUnknown {
		t.Fatalf("expected unknown on fetch failure, got %v", verdict)
	}
}
