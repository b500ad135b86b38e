// Package ws pushes chunk upload payloads to renderer clients over a
// websocket: JSON control messages as text frames, raw buffers as binary
// frames. Each CHUNK header is followed by exactly one binary frame holding
// the octree buffer and then the dense voxel grid.
package ws

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelray.ai/internal/protocol"
	"voxelray.ai/internal/voxel/chunk"
	"voxelray.ai/internal/voxel/octree"
	"voxelray.ai/internal/world"
)

const defaultMaxPending = 32

type Server struct {
	mu    sync.Mutex
	world *world.World

	log       *log.Logger
	pushEvery time.Duration

	sessions atomic.Uint64
	upgrader websocket.Upgrader
}

// NewServer wraps a world for serving. The world itself is unsynchronized;
// every access from connection goroutines and from Update goes through the
// server's mutex.
func NewServer(w *world.World, logger *log.Logger, pushEvery time.Duration) *Server {
	if pushEvery <= 0 {
		pushEvery = 250 * time.Millisecond
	}
	return &Server{
		world:     w,
		log:       logger,
		pushEvery: pushEvery,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Update runs fn with exclusive access to the world. External callers (the
// snapshot loop, seeding code) must mutate the world only through this.
func (s *Server) Update(fn func(*world.World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}

type payload struct {
	header []byte // CHUNK JSON
	frame  []byte // octree buffer ++ voxel buffer
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		maxPending, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan payload, maxPending)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case p, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, p.header); err != nil {
						cancel()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.BinaryMessage, p.frame); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Pusher goroutine: initial full sync, then digest-diff on a tick.
		go func() {
			seen := map[world.ChunkKey][32]byte{}
			if !s.pushChanged(ctx, out, seen) {
				cancel()
				return
			}
			t := time.NewTicker(s.pushEvery)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if !s.pushChanged(ctx, out, seen) {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: SET edits.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeSet {
				continue
			}
			var set protocol.SetMsg
			if err := json.Unmarshal(msg, &set); err != nil {
				continue
			}
			if set.ProtocolVersion != protocol.Version {
				continue
			}
			s.mu.Lock()
			s.world.SetBlock(octree.Point3D{X: set.Pos[0], Y: set.Pos[1], Z: set.Pos[2]}, set.Voxel)
			s.mu.Unlock()
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (maxPending int, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return 0, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, "malformed HELLO")
		return 0, false
	}
	if hello.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrBadVersion, "unsupported protocol_version")
		return 0, false
	}

	maxPending = hello.Capabilities.MaxPending
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}

	s.mu.Lock()
	size := s.world.ChunkSize()
	alignment := s.world.Alignment()
	s.mu.Unlock()

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       fmt.Sprintf("S%d", s.sessions.Add(1)),
		WorldParams: protocol.WorldParams{
			ChunkSize:   size,
			Alignment:   alignment,
			OctreeBytes: octree.EstimatedSizeAligned(size, alignment),
			VoxelBytes:  size * size * size * 2,
		},
	}
	b, _ := json.Marshal(welcome)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, false
	}
	if s.log != nil {
		s.log.Printf("client %q joined (%s)", hello.ClientName, welcome.SessionID)
	}
	return maxPending, true
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	b, _ := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: message})
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

// pushChanged enqueues a payload for every loaded chunk whose grid digest
// moved since the last push to this client. Returns false when the client
// cannot keep up (its pending queue is full).
func (s *Server) pushChanged(ctx context.Context, out chan<- payload, seen map[world.ChunkKey][32]byte) bool {
	var pending []payload

	s.mu.Lock()
	for _, k := range s.world.LoadedChunkKeys() {
		ch := s.world.Chunk(k)
		d := ch.Digest()
		if seen[k] == d {
			continue
		}
		seen[k] = d
		pending = append(pending, buildPayload(k, ch, d))
	}
	s.mu.Unlock()

	for _, p := range pending {
		select {
		case <-ctx.Done():
			return false
		case out <- p:
		default:
			if s.log != nil {
				s.log.Printf("dropping slow client (%d pending)", len(out))
			}
			return false
		}
	}
	return true
}

func buildPayload(k world.ChunkKey, ch *chunk.Chunk, digest [32]byte) payload {
	// Copy the octree buffer while the lock is held; RawData is the live
	// backing slice.
	tree := ch.Tree().RawData()
	voxels := ch.RawVoxels()
	frame := make([]byte, 0, len(tree)+len(voxels))
	frame = append(frame, tree...)
	frame = append(frame, voxels...)

	header, _ := json.Marshal(protocol.ChunkMsg{
		Type:        protocol.TypeChunk,
		Pos:         [3]int{k.CX, k.CY, k.CZ},
		Size:        ch.Size(),
		OctreeBytes: len(tree),
		VoxelBytes:  len(voxels),
		Digest:      hex.EncodeToString(digest[:]),
	})
	return payload{header: header, frame: frame}
}
