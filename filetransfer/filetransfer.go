// Package filetransfer implements the DropSend/DropRequest file-drop
// sub-protocol: exactly one exchange in flight per connection, no
// interleaving with Action traffic while it runs.
package filetransfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inputbridge/kmf"
)

// SanitizeFilename rejects a filename carrying a path separator or a
// parent-directory component, returning it unchanged otherwise. The
// original protocol wrote drops to the literal wire filename with no
// check at all; this closes that latent vulnerability per the filename
// safety design note.
func SanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", kmf.ErrUnsafeFilename
	}
	if strings.ContainsAny(name, `/\`) {
		return "", kmf.ErrUnsafeFilename
	}
	if name == "." || name == ".." {
		return "", kmf.ErrUnsafeFilename
	}
	return name, nil
}

// SendFile runs the master side of a push: DropSend{filename} followed by
// Data{bytes}, then waits for the slave's Ok/Err reply. Any reply other
// than Ok is treated as a failure, matching the master caller's stated
// contract.
func SendFile(rw io.ReadWriter, mode kmf.SerializationMode, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	filename := filepath.Base(localPath)

	if err := kmf.Send(rw, kmf.DropSend{Filename: filename}, mode); err != nil {
		return err
	}
	if err := kmf.Send(rw, kmf.Data{Bytes: data}, mode); err != nil {
		return err
	}

	reply, err := kmf.Receive(rw, mode)
	if err != nil {
		return err
	}
	switch v := reply.(type) {
	case kmf.Ok:
		return nil
	case kmf.Err:
		return fmt.Errorf("filetransfer: drop rejected: %s", v.Message)
	default:
		return kmf.ErrInvalidPacket
	}
}

// ReceiveSend runs the slave side of a push, given the filename already
// read off a DropSend packet by the caller's dispatch loop. It validates
// the filename first; an unsafe name is answered with Err without reading
// the following Data packet. Otherwise it reads the Data packet, writes
// dir/filename, and replies Ok or Err.
func ReceiveSend(rw io.ReadWriter, mode kmf.SerializationMode, filename, dir string) error {
	safe, err := SanitizeFilename(filename)
	if err != nil {
		_ = kmf.Send(rw, kmf.Err{Code: kmf.ErrCodeInvalidPacket, Message: err.Error()}, mode)
		return err
	}

	pkt, err := kmf.Receive(rw, mode)
	if err != nil {
		return err
	}
	data, ok := pkt.(kmf.Data)
	if !ok {
		_ = kmf.Send(rw, kmf.Err{Code: kmf.ErrCodeInvalidPacket, Message: "expected Data"}, mode)
		return kmf.ErrInvalidPacket
	}

	if err := os.WriteFile(filepath.Join(dir, safe), data.Bytes, 0o644); err != nil {
		_ = kmf.Send(rw, kmf.Err{Code: kmf.ErrCodeInternal, Message: err.Error()}, mode)
		return err
	}
	return kmf.Send(rw, kmf.Ok{}, mode)
}

// RequestFile runs the master side of a pull: DropRequest{remoteFilename},
// then either a Data reply (written to localPath) or an Err reply.
func RequestFile(rw io.ReadWriter, mode kmf.SerializationMode, remoteFilename, localPath string) error {
	if err := kmf.Send(rw, kmf.DropRequest{Filename: remoteFilename}, mode); err != nil {
		return err
	}

	reply, err := kmf.Receive(rw, mode)
	if err != nil {
		return err
	}
	switch v := reply.(type) {
	case kmf.Data:
		return os.WriteFile(localPath, v.Bytes, 0o644)
	case kmf.Err:
		return fmt.Errorf("filetransfer: request rejected: %s", v.Message)
	default:
		return kmf.ErrInvalidPacket
	}
}

// ServeRequest runs the slave side of a pull, given the filename already
// read off a DropRequest packet. It validates the filename, reads
// dir/filename, and replies Data on success or Err on failure (file not
// found or unsafe name).
func ServeRequest(rw io.ReadWriter, mode kmf.SerializationMode, filename, dir string) error {
	safe, err := SanitizeFilename(filename)
	if err != nil {
		return kmf.Send(rw, kmf.Err{Code: kmf.ErrCodeInvalidPacket, Message: err.Error()}, mode)
	}

	data, err := os.ReadFile(filepath.Join(dir, safe))
	if err != nil {
		code := kmf.ErrCodeInternal
		if os.IsNotExist(err) {
			code = kmf.ErrCodeNotFound
		}
		return kmf.Send(rw, kmf.Err{Code: code, Message: err.Error()}, mode)
	}
	return kmf.Send(rw, kmf.Data{Bytes: data}, mode)
}
