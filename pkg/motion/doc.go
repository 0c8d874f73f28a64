// Package motion drives the controller's motion system: continuous jogging
// under motion mastership and inverse kinematics queries.
//
// The controller stops a jog when it receives no new command for a short
// time, so a Jogger re-issues its command at a fixed interval until Stop is
// called. Stopping is cooperative: the loop checks the stop flag before
// each command and never interrupts one in flight.
package motion
