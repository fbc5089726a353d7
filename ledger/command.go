package ledger

// Command is one instruction inside a Commands envelope. The union is
// closed: create, exercise, exercise-by-key, and create-and-exercise.
type Command interface {
	isCommand()
}

// CreateCommand instantiates a template with the given arguments.
type CreateCommand struct {
	Template  Identifier
	Arguments Record
}

// ExerciseCommand exercises a choice on an existing contract. The contract
// ID alone names the contract; the node knows its template.
type ExerciseCommand struct {
	ContractID ContractID
	Choice     string
	Argument   Value
}

// ExerciseByKeyCommand exercises a choice on the contract identified by its
// key under the given template.
type ExerciseByKeyCommand struct {
	Template Identifier
	Key      Value
	Choice   string
	Argument Value
}

// CreateAndExerciseCommand instantiates a template and immediately
// exercises a choice on the fresh contract, atomically.
type CreateAndExerciseCommand struct {
	Template  Identifier
	Arguments Record
	Choice    string
	Argument  Value
}

func (CreateCommand) isCommand()            {}
func (ExerciseCommand) isCommand()          {}
func (ExerciseByKeyCommand) isCommand()     {}
func (CreateAndExerciseCommand) isCommand() {}
