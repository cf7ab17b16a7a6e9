package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const maxLineSize = 16 * 1024 * 1024

// ServeStdio reads one request per line from in and writes one response per
// line to out. It returns when in is exhausted, ctx is done or a shutdown
// request has been answered.
func ServeStdio(ctx context.Context, h *Handler, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := h.HandleMessage(ctx, line)
		if resp != nil {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}

		if h.ShutdownRequested() {
			h.logger.Info("Stopping stdio loop after shutdown")
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("Error reading stdin", zap.Error(err))
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}
