package ports

import "context"

// ProgressFunc receives engine progress as a fraction in [0,1].
type ProgressFunc func(fraction float64)

// CodecEngine is the external codec engine. It owns a private working
// storage addressed by flat file names and executes ffmpeg-style commands
// whose input and output names refer to that storage.
type CodecEngine interface {
	// WriteFile stores data under name in the working storage.
	WriteFile(name string, data []byte) error

	// ReadFile returns the contents stored under name.
	ReadFile(name string) ([]byte, error)

	// DeleteFile removes name from the working storage.
	DeleteFile(name string) error

	// Exec runs one command and reports progress until it completes.
	Exec(ctx context.Context, args []string, onProgress ProgressFunc) error

	// Close releases the working storage.
	Close() error
}

// EngineLoader initializes a CodecEngine. It may fetch remote resources.
type EngineLoader interface {
	Load(ctx context.Context) (CodecEngine, error)
}

// EngineProvider hands out the process-wide codec engine, loading it on first use.
type EngineProvider interface {
	Get(ctx context.Context) (CodecEngine, error)
	Loaded() bool
}
