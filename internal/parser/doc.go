// Package parser extracts entities, relations, and source spans from the
// file formats the indexer understands.
//
// A Registry maps case-folded file extensions to parsers. Code formats
// (Go, Python, JavaScript, TypeScript, CSS, HTML) are grammar-driven;
// Go uses the standard library AST and the rest use tree-sitter. Data and
// prose formats (YAML, TOML, JSON, Markdown, INI, plain text) use format
// libraries or line scanning.
//
// Every parser emits one file entity plus zero or more declaration
// entities with qualified names rooted at the file path, e.g.
//
//	pkg/auth.py::Validator::check
//
// Duplicate names within a scope get a "#<line>" suffix on collision,
// and anonymous functions get synthetic "anon@<file>:<line>" names.
// Oversized structured inputs fall back to a bounded streaming pathway
// that windows the file into text chunks.
package parser
