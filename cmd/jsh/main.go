// Command jsh boots the scripting shell and runs a script file.
package main

func main() {
	Execute()
}
