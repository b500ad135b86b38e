package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	chunkSchema := compile("chunk.schema.json")
	setSchema := compile("set.schema.json")
	errorSchema := compile("error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"renderer",
	  "capabilities":{"max_pending":16}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "world_params":{
	    "chunk_size":16,
	    "alignment":256,
	    "octree_bytes":768,
	    "voxel_bytes":8192
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var chunk any
	_ = json.Unmarshal([]byte(`{
	  "type":"CHUNK",
	  "pos":[0,-1,2],
	  "size":16,
	  "octree_bytes":768,
	  "voxel_bytes":8192,
	  "digest":"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	}`), &chunk)
	validate(chunkSchema, chunk)

	var set any
	_ = json.Unmarshal([]byte(`{
	  "type":"SET",
	  "protocol_version":"1.0",
	  "pos":[4,0,-9],
	  "voxel":31
	}`), &set)
	validate(setSchema, set)

	var errMsg any
	_ = json.Unmarshal([]byte(`{
	  "type":"ERROR",
	  "code":"E_BAD_VERSION",
	  "message":"unsupported protocol_version"
	}`), &errMsg)
	validate(errorSchema, errMsg)

	var badSet any
	_ = json.Unmarshal([]byte(`{
	  "type":"SET",
	  "protocol_version":"1.0",
	  "pos":[4,0],
	  "voxel":31
	}`), &badSet)
	if err := setSchema.Validate(badSet); err == nil {
		t.Fatalf("expected 2-element pos to fail validation")
	}
}
