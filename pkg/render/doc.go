// Package render turns export jobs into image files.
//
// # Overview
//
// A [Job] describes one page to export: the source document, the page's
// synced record (index, name, hash, output path), the output format and any
// extra arguments for the exporter. A [Renderer] executes jobs one at a time;
// it is the only component with side effects on the output folder.
//
// # Drawio
//
// [Drawio] binds the Renderer capability to the draw.io desktop CLI:
//
//	drawio -x <document> -o <output> -p <page> -f <format> [extra...]
//
// The process exit status decides success; stdout is ignored and stderr is
// attached to the error on failure.
//
// # Testing
//
// [Func] adapts a plain function, so executors and pipelines can be tested
// without spawning processes:
//
//	r := render.Func(func(ctx context.Context, j render.Job) error {
//	    return os.WriteFile(j.Page.Path, nil, 0644)
//	})
package render
