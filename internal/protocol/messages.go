package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	// MaxPending caps the number of chunk payloads the server may queue
	// for this client before dropping the connection.
	MaxPending int `json:"max_pending,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
}

// WorldParams carries everything a client needs to size its GPU buffers
// before the first CHUNK arrives.
type WorldParams struct {
	ChunkSize   int `json:"chunk_size"`
	Alignment   int `json:"alignment"`
	OctreeBytes int `json:"octree_bytes"`
	VoxelBytes  int `json:"voxel_bytes"`
}

// CHUNK (server -> client). Announces one binary frame that follows
// immediately: OctreeBytes of octree buffer, then VoxelBytes of
// little-endian dense voxel grid.
type ChunkMsg struct {
	Type        string `json:"type"`
	Pos         [3]int `json:"pos"` // chunk coordinate, chunk units
	Size        int    `json:"size"`
	OctreeBytes int    `json:"octree_bytes"`
	VoxelBytes  int    `json:"voxel_bytes"`
	Digest      string `json:"digest"` // sha256 of the dense grid, hex
}

// SET (client -> server). A world-space block edit.
type SetMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Pos             [3]int `json:"pos"` // world voxel coordinate
	Voxel           uint16 `json:"voxel"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
