// Package services contains the application core: the incremental
// sync session state machine and the local batch processor. Both
// funnel extracted documents through the same archive port, so the
// online and offline paths share identical placement semantics.
package services
