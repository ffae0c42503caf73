package cmd

import (
	"fmt"
	"strings"
)

const completionScript = `_hitstub()
{
    local cur="${COMP_WORDS[COMP_CWORD]}"
    local words
    if [ "$COMP_CWORD" -eq 1 ]; then
        words="version play preview last history browse completion $(hitstub __complete 2>/dev/null)"
    else
        words="$(hitstub __complete 2>/dev/null)"
    fi
    COMPREPLY=($(compgen -W "$words" -- "$cur"))
}
complete -F _hitstub hitstub
`

func executeCompletion() error {
	fmt.Print(completionScript)
	return nil
}

func completion() error {
	executor, err := newExecutor(nil)
	if err != nil {
		return err
	}
	defer executor.Close()
	ids, err := executor.AllStubIDs()
	if err != nil {
		return err
	}
	output := strings.Join(ids, " ")
	fmt.Println(output)
	return nil
}
