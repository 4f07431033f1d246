package server

import "io"

// ReadWriteCloser glues separate read and write streams into the single
// stream jsonrpc2 expects.
type ReadWriteCloser struct {
	R io.ReadCloser
	W io.WriteCloser
}

func (rw ReadWriteCloser) Read(p []byte) (int, error)  { return rw.R.Read(p) }
func (rw ReadWriteCloser) Write(p []byte) (int, error) { return rw.W.Write(p) }

func (rw ReadWriteCloser) Close() error {
	rerr := rw.R.Close()
	werr := rw.W.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
