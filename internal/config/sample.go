package config

// Sample is the embedded example configuration nit prints for
// `nit sample-config`, grounded on original_source/main.rs's
// verify_sample_config test fixture (kept in sync by
// config_test.go's TestSampleConfigParses).
const Sample = `{
  // Run on every text file except generated protobuf output and
  // anything under vendor/.
  "include": {
    "kind": "and",
    "operands": [
      { "kind": "is_text" },
      { "kind": "not", "operand": { "kind": "glob", "pattern": "**/*.pb.go" } },
      { "kind": "not", "operand": { "kind": "glob", "pattern": "vendor/**" } }
    ]
  },
  "concurrency": 4,
  "fail_fast": false,
  "linters": [
    {
      "name": "gofmt-check",
      "location": {
        "remote": {
          "url": "https://modules.example.com/gofmt-check.wasm",
          "hash": "0000000000000000000000000000000000000000000000000000000000000000"
        }
      },
      "override_argv_template": ["--check", "{files}"]
    },
    {
      "name": "local-license-header",
      "location": { "local": "tools/lint/license-header.wasm" },
      "override_include": { "kind": "extension", "extensions": ["go"] }
    }
  ]
}
`
