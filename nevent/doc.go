/*
Package nevent is the priority event dispatcher and the kernel
lifecycle events.

Listeners run from highest to lowest priority; listeners with equal
priority run in the order they were added. Dispatch stops early when an
event reports that propagation is stopped, which the responder events
(RequestEvent, ViewEvent, ExceptionEvent) do once a response is set.
A listener error aborts the dispatch and is returned unchanged.
*/
package nevent
