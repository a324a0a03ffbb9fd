// Package kinds provides the artifact kinds artisync reconciles.
//
// Every kind is a Definition: a name, the file extensions it claims, a
// decoder turning one declaration file into declarations, and the store the
// artifacts are persisted in. Kinds differ only by decoder.
//
//	extensionpoint  .extensionpoint  JSON  one artifact
//	extension       .extension       JSON  one artifact, depends on its extension point
//	role            .roles           JSON  one artifact per role
//	access          .access          JSON  one artifact per constraint, depends on roles
//	schema          .schema          CUE   one artifact per table and view, views depend on tables
//	listener        .listener        JSON  one artifact
//	websocket       .websocket       JSON  one artifact
//	job             .job             YAML  one artifact
//
// JSON declarations are validated against the schemas embedded under
// schemas/ before they are decoded.
package kinds
