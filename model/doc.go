// Package model defines the provider-agnostic abstraction for interacting
// with language models inside agentrouter.
//
// Core goals:
//   - A single non-streaming Generate call shared by agents and tools
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface in
// subpackages so higher layers remain decoupled from vendor SDKs.
package model
