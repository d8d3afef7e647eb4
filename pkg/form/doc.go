// Package form validates user input before it becomes a change or a
// request.
//
// Validators are small composable values:
//
//	err := form.Field("skill", input,
//	    form.Required("Enter a skill"),
//	    form.MaxLength(40, ""),
//	)
//
// Structs can declare their rules in a validate tag:
//
//	type ProfileInput struct {
//	    Name    string `json:"name" validate:"required,max=80"`
//	    Website string `json:"website" validate:"url"`
//	}
//
//	if err := form.Struct(in); err != nil {
//	    // err is form.Errors, one entry per failing field
//	}
package form
