/*
Package dataprov provides tooling to manage versioned, provenance-tracked
datasets inside a project.

Datasets group files imported from local paths, remote git repositories or
external catalog providers. Every file keeps a record of where it came from
and what it contained, datasets can be synchronized against their sources,
and immutable tags capture states worth naming.

The engine lives under pkg/core, source resolution under pkg/source, and
catalog providers (Zenodo, Dataverse, project-to-project) under
pkg/provider. The dataprov command wires these together over a project
directory.
*/
package dataprov
