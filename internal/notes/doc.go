// Package notes extracts tasks from Markdown note documents.
//
// A document is scanned line by line. Every level-3 heading opens a task
// block that runs until the next level-3 heading or the end of the text.
// Text before the first heading is ignored.
//
// # Grammar
//
//	document    = preamble { block }
//	preamble    = { line }                          ; produces no task
//	block       = heading body
//	heading     = "###" [ ( SP | TAB ) rest ] EOL   ; column 0, "####" is not a heading
//	body        = { fence | prose-line }
//	fence       = open-fence { code-line } [ close-fence ]
//	open-fence  = indent "```" [ info ] EOL         ; info is an optional language tag
//	close-fence = indent "```" { "`" | SP | TAB } EOL
//	indent      = 0*3 SP
//
// Headings always end a block, so a fence left open at the end of a block
// is closed there.
//
// # Segments
//
// The title is the heading remainder, trimmed; empty titles are kept.
//
// The code segment is built from every fence in source order: the fence
// content has its newlines replaced by spaces and is trimmed, and non-empty
// results are joined with "\n".
//
// The text segment comes from the prose between fences. When the label
// "**Description**:" is present the text is whatever follows it up to the
// next "**", the next fence or the end of the block. Without the label the
// text is all remaining prose, or "Not specified" when there is none.
//
// The scan is a single pass over the lines with no backtracking.
package notes
