// Package audit grava a trilha de auditoria fora do caminho da requisição.
// Cada evento vira uma linha "<timestamp RFC3339> | <mensagem>".
package audit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
)

// DefaultQueueSize é a capacidade padrão da fila de eventos.
const DefaultQueueSize = 256

// Recorder é o que os serviços usam. Record nunca bloqueia nem falha.
type Recorder interface {
	Record(message string)
}

// Nop descarta os eventos.
type Nop struct{}

func (Nop) Record(string) {}

type event struct {
	at      time.Time
	message string
}

// Writer consome a fila numa única goroutine e escreve em out.
// Fila cheia descarta o evento (com log e métrica) em vez de atrasar a requisição.
type Writer struct {
	mu     sync.RWMutex
	closed bool
	queue  chan event

	out     io.Writer
	closer  io.Closer
	now     func() time.Time
	logger  logger.Logger
	metrics metrics.Recorder
	done    chan struct{}
}

// NewFileWriter abre (em modo append) o arquivo de auditoria.
func NewFileWriter(path string, queueSize int, log logger.Logger, rec metrics.Recorder) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir arquivo de auditoria: %w", err)
	}
	w := NewWriter(f, queueSize, nil, log, rec)
	w.closer = f
	return w, nil
}

// NewWriter inicia o consumidor sobre out. now pode ser nil.
func NewWriter(out io.Writer, queueSize int, now func() time.Time, log logger.Logger, rec metrics.Recorder) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if now == nil {
		now = time.Now
	}
	w := &Writer{
		queue:   make(chan event, queueSize),
		out:     out,
		now:     now,
		logger:  log,
		metrics: metrics.OrNop(rec),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Record enfileira o evento. Depois de Close, eventos são ignorados.
func (w *Writer) Record(message string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.queue <- event{at: w.now(), message: message}:
	default:
		w.metrics.RecordAuditDropped()
		w.logger.Warn("Fila de auditoria cheia; evento descartado.", map[string]interface{}{"audit": message})
	}
}

func (w *Writer) run() {
	defer close(w.done)
	buf := bufio.NewWriter(w.out)
	for ev := range w.queue {
		line := ev.at.UTC().Format(time.RFC3339Nano) + " | " + ev.message + "\n"
		if _, err := buf.WriteString(line); err != nil {
			w.logger.Error("Falha ao escrever evento de auditoria.", err)
			continue
		}
		// só descarrega quando a fila esvazia, agrupando rajadas
		if len(w.queue) == 0 {
			if err := buf.Flush(); err != nil {
				w.logger.Error("Falha ao descarregar auditoria.", err)
			}
		}
	}
	if err := buf.Flush(); err != nil {
		w.logger.Error("Falha ao descarregar auditoria.", err)
	}
}

// Close para de aceitar eventos e espera a fila ser drenada ou ctx expirar.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		return fmt.Errorf("auditoria não drenada: %w", ctx.Err())
	}

	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
