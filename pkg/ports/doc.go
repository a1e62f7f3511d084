/*
Package ports defines the interfaces the arbor engine needs from its host.

The engine never talks to a broker, a database or the wall clock directly; it
consumes an EntityBus for observable values and a TimerService for one-shot
timers. Adapters (memory, redis, mqtt, host) provide the implementations.

Adapters must serialize callback delivery: the engine is a single-goroutine,
run-to-completion state holder and must never receive a second callback while
the first is still being processed.
*/
package ports
