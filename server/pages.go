package server

import "html"

func templateEscape(value string) string {
	return html.EscapeString(value)
}

const loginPageHTML = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in with your passkey</h1>
<p>Email: <input id="email" type="email" value="%s"></p>
<input id="return_to" type="hidden" value="%s">
<button onclick="authenticate()">Sign in</button>
<p id="status"></p>
<script>
function b64urlToBuf(s) {
	s = s.replace(/-/g, "+").replace(/_/g, "/");
	const bin = atob(s + "=".repeat((4 - s.length %% 4) %% 4));
	return Uint8Array.from(bin, c => c.charCodeAt(0));
}
function bufToB64url(buf) {
	const bin = String.fromCharCode(...new Uint8Array(buf));
	return btoa(bin).replace(/\+/g, "-").replace(/\//g, "_").replace(/=+$/, "");
}
async function authenticate() {
	const email = document.getElementById("email").value;
	const status = document.getElementById("status");
	try {
		const optionsResp = await fetch("/webauthn/authenticate/options", {
			method: "POST",
			headers: {"Content-Type": "application/json"},
			body: JSON.stringify({email: email}),
		});
		if (!optionsResp.ok) throw new Error("no passkey registered for this email");
		const {options, ceremony_token} = await optionsResp.json();

		const publicKey = options.publicKey;
		publicKey.challenge = b64urlToBuf(publicKey.challenge);
		(publicKey.allowCredentials || []).forEach(c => { c.id = b64urlToBuf(c.id); });

		const cred = await navigator.credentials.get({publicKey});
		const verifyResp = await fetch("/webauthn/authenticate/verify?email=" +
			encodeURIComponent(email) + "&ceremony_token=" + encodeURIComponent(ceremony_token), {
			method: "POST",
			headers: {"Content-Type": "application/json"},
			body: JSON.stringify({
				id: cred.id,
				rawId: bufToB64url(cred.rawId),
				type: cred.type,
				response: {
					authenticatorData: bufToB64url(cred.response.authenticatorData),
					clientDataJSON: bufToB64url(cred.response.clientDataJSON),
					signature: bufToB64url(cred.response.signature),
					userHandle: cred.response.userHandle ? bufToB64url(cred.response.userHandle) : null,
				},
			}),
		});
		if (!verifyResp.ok) throw new Error("verification failed");

		const returnTo = document.getElementById("return_to").value;
		window.location = returnTo && returnTo.startsWith("/") ? returnTo : "/";
	} catch (err) {
		status.textContent = "Sign-in failed: " + err.message;
	}
}
</script>
</body>
</html>
`

const consentPageHTML = `<!DOCTYPE html>
<html>
<head><title>Approve sign-in</title></head>
<body>
<h1>Approve sign-in</h1>
<p>Allow <strong>%s</strong> to sign you in?</p>
<form method="POST" action="/consent">
<input type="hidden" name="sp_id" value="%s">
<input type="hidden" name="return_to" value="%s">
<button type="submit">Allow</button>
</form>
</body>
</html>
`
