package speech

import (
	"context"
	"errors"
	"io"
)

// pumpMicrophone forwards microphone chunks into audio. Chunks are dropped
// while no recognizer session is draining the channel.
func pumpMicrophone(ctx context.Context, mic io.Reader, chunkSize int, audio chan<- []byte, ended func(error)) {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := mic.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case audio <- chunk:
			default:
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				ended(io.EOF)
				return
			}
			ended(err)
			return
		}
	}
}
