// Package service provides the provider registry the API surfaces sit on.
//
// The registry maintains a catalog of service providers and handles
// discovery, tool execution, and relevance scoring for free-text queries.
//
// Components:
//   - Registry: Central service catalog
//   - Provider: Interface for service implementations
//   - Service discovery with relevance scoring
//
// Features:
//   - Thread-safe service registration
//   - Category-based filtering
//   - Intent-based discovery with scoring
//   - Tool execution with context passing
//   - Service statistics
//
// Discovery Algorithm:
//   - Keyword matching in name/description
//   - Capability matching
//   - Category bonus for exact matches
//   - Score-based ranking
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(playgroundProvider)
//	services := registry.Discover("run snippet", 5)
//	result, err := registry.Execute(ctx, "playground.run", params, appCtx)
package service
