// Package xt composes template files made of named partials.
//
// A template file is either plain text, which becomes its single "main"
// partial, or a header of dependency directives followed by partial blocks:
//
//	<x-extend path="layouts/base">
//	<x-require path="shared/nav" alias="nav">
//	<x-require path="data/site.json" alias="site" module="json">
//
//	<x-wrapper name="card"><div class="card"><x-content></div></x-wrapper>
//	<x-template name="title">Home</x-template>
//	<x-template wrapper="card"><x-include name="links" from="nav"></x-template>
//
// # Directives
//
//   - x-extend: inherit every partial, wrapper and include of another file.
//     Partials defined here override the inherited ones, also inside inherited
//     content. Only the first extend is honored.
//   - x-require: make another file's partials available under an alias, or
//     load an external module such as json!data/site.json.
//   - x-template: define a partial, optionally wrapped.
//   - x-wrapper: define a shell whose single x-content marks where the
//     wrapped partial goes.
//   - x-include: insert the composed content of a partial, from this file or
//     from an aliased one.
//
// # Resolution
//
// Files are fetched, parsed and resolved once per process. Concurrent
// requests for the same file share a single resolution; failures are never
// cached, so a later request retries. Inheritance cycles fail with a
// dependency error instead of waiting forever.
//
// # Usage
//
//	artifact, err := xt.Load(ctx, "pages/home:title")
//	if err != nil {
//		return err
//	}
//	err = artifact.Execute(ctx, w, data)
//
// The process-wide loader reads from the current directory with the identity
// compiler until Configure replaces it.
//
// # Configuration
//
// The xtpl command reads .xtpl.yml, XTPL_* environment variables and flags:
//
//	engine:
//	  extension: html
//	  default_partial: main
//	  compiler: gotemplate
//	source:
//	  root: templates
//	build:
//	  output_dir: dist
//	  patterns: ["pages/**/*.html"]
//	server:
//	  port: 8080
//	development:
//	  hot_reload: true
package xt
