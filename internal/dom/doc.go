/*
Package dom provides the lightweight document model the interception layer
operates on.

# Overview

A Document owns an element tree with two shared regions, Head and Body. Each
region's insert and remove entry points are swappable function values, which
is the seam the mutation interceptor patches. Everything else is a plain
tree: elements with attributes, text and comment nodes, and a live
stylesheet rule list on style elements attached to a document.

# Stylesheet lifetime

A style element's StyleSheet is only live while the element is connected to
a document. Detaching the element discards the sheet, mirroring how browsers
drop the CSSOM of a removed style node. Rules injected programmatically
(rather than via text) are therefore lost across a detach/reattach cycle
unless captured beforehand; see the style package.

# Parsing

Parse and ParseFragment build element trees from HTML text using
golang.org/x/net/html, and Render serializes a tree back to markup.
*/
package dom
