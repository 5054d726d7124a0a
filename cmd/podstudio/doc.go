// Command podstudio runs the podcast generation service and its operator
// tooling.
//
//	podstudio serve                   run the daemon (HTTP API, timeout sweep)
//	podstudio generate <episode>      run one generation synchronously
//	podstudio status [episode]        show one workflow record or all active runs
//	podstudio reset <episode>         return a workflow record to idle
//	podstudio import <file>           load episodes and guests from JSON or research markdown
//	podstudio config init|show|validate
//	podstudio check                   verify directories, stores and endpoints
//	podstudio test-notify             send a test ntfy notification
package main
