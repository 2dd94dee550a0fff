/*
Package sandbox provides the isolated global scope micro-app scripts
execute against.

# Overview

Each micro-app gets a Runtime: a goja VM whose host global object plays
the shared window, plus a private proxy window the app's code is bound to.
MakeEvaluateFactory wraps captured script code so that, when later
executed, its free variables resolve and write against the private proxy
instead of the shared global. The proxy is a real ES Proxy installed at VM
setup, trapping `has` so a `with` block captures every name.

# Execution

Execute runs code with a timeout interrupt and console capture, so tests
can prove that wrapped code's writes land on the private window. A Pool of
runtimes amortizes VM construction for orchestrators juggling many apps.

Sandboxed code cannot reach require, process, module, or exports; timers
are no-ops.
*/
package sandbox
