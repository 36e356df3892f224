// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relaywire

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype the relay speaks.
const CodecName = "relayframe"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals Frame values for gRPC.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	f, ok := v.(Frame)
	if !ok {
		return nil, fmt.Errorf("relaywire: cannot marshal %T", v)
	}
	return f.AppendFrame(nil), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	f, ok := v.(Frame)
	if !ok {
		return fmt.Errorf("relaywire: cannot unmarshal into %T", v)
	}
	return f.UnmarshalFrame(data)
}
